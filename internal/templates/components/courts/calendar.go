// Package courts renders the court day grid as HTML.
package courts

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/templates/layouts"
)

// CalendarData is everything the day grid page needs.
type CalendarData struct {
	Grid     booking.DayGrid
	Location *time.Location
	PrevDate string
	NextDate string
}

// NewCalendarData wraps grid with links to the neighbouring days.
func NewCalendarData(grid booking.DayGrid, loc *time.Location) CalendarData {
	if loc == nil {
		loc = time.UTC
	}
	data := CalendarData{Grid: grid, Location: loc}
	if day, err := time.ParseInLocation(time.DateOnly, grid.Date, loc); err == nil {
		data.PrevDate = day.AddDate(0, 0, -1).Format(time.DateOnly)
		data.NextDate = day.AddDate(0, 0, 1).Format(time.DateOnly)
	}
	return data
}

// Page renders a complete HTML document around the day grid.
func Page(data CalendarData) templ.Component {
	title := fmt.Sprintf("%s - %s", data.Grid.CourtName, data.Grid.Date)
	return layouts.Base(title, layouts.DefaultPalette(), Calendar(data))
}

// Calendar renders the slot table for one court and day.
func Calendar(data CalendarData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		grid := data.Grid
		courtPath := "/courts/" + templ.EscapeString(grid.CourtID) + "/calendar?date="

		if _, err := fmt.Fprintf(w, `<section id="court-calendar" class="max-w-xl mx-auto p-4" data-court-id="%s">`,
			templ.EscapeString(grid.CourtID)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<header class="flex items-center justify-between mb-4">`+
			`<a class="text-sm text-blue-600" href="%s%s">&larr; Previous</a>`+
			`<h1 class="text-lg font-semibold">%s <span class="text-gray-500">%s</span></h1>`+
			`<a class="text-sm text-blue-600" href="%s%s">Next &rarr;</a></header>`,
			courtPath, templ.EscapeString(data.PrevDate),
			templ.EscapeString(grid.CourtName), templ.EscapeString(grid.Date),
			courtPath, templ.EscapeString(data.NextDate)); err != nil {
			return err
		}
		if !grid.IsAvailable {
			if _, err := io.WriteString(w, `<p class="mb-2 text-sm text-red-600">Fully booked</p>`); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<table class="w-full text-sm"><tbody>`); err != nil {
			return err
		}
		for _, slot := range grid.TimeSlots {
			if err := renderSlot(w, slot, data.Location); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></section>`)
		return err
	})
}

func renderSlot(w io.Writer, slot booking.Slot, loc *time.Location) error {
	rowClass := "bg-green-50"
	colorVar := "--slot-available"
	label := "Available"
	if !slot.Available() {
		rowClass = "bg-gray-200"
		colorVar = "--slot-reserved"
		label = "Reserved"
		if slot.Notes != nil && *slot.Notes != "" {
			label = *slot.Notes
		}
	}
	_, err := fmt.Fprintf(w, `<tr class="%s" style="border-left:4px solid var(%s)" data-status="%s"><td class="px-2 py-1 font-mono">%s - %s</td><td class="px-2 py-1">%s</td></tr>`,
		rowClass,
		colorVar,
		templ.EscapeString(slot.Status),
		slot.StartTime.In(loc).Format("15:04"),
		slot.EndTime.In(loc).Format("15:04"),
		templ.EscapeString(label),
	)
	return err
}
