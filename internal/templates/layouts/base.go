package layouts

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

// Palette holds the colors exposed to pages as CSS custom properties.
type Palette struct {
	Available string
	Reserved  string
	Accent    string
}

func DefaultPalette() Palette {
	return Palette{
		Available: "#16a34a",
		Reserved:  "#9ca3af",
		Accent:    "#2563eb",
	}
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func paletteCSSVars(p Palette) string {
	def := DefaultPalette()
	return fmt.Sprintf(
		":root{--slot-available:%s;--slot-reserved:%s;--accent:%s;}",
		colorOrDefault(p.Available, def.Available),
		colorOrDefault(p.Reserved, def.Reserved),
		colorOrDefault(p.Accent, def.Accent),
	)
}

func colorOrDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if !hexColor.MatchString(trimmed) {
		return fallback
	}
	return trimmed
}

// Base wraps body in the HTML document shell.
func Base(title string, palette Palette, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/><title>%s</title>`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"/><style>%s</style></head><body class="bg-gray-50">`,
			templ.EscapeString(title), paletteCSSVars(palette)); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
