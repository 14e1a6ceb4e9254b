package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const sendTimeout = 10 * time.Second

// Notifier emails players about their reservations.
type Notifier struct {
	sender    EmailSender
	venueName string
	location  *time.Location
}

func NewNotifier(sender EmailSender, venueName string, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{sender: sender, venueName: venueName, location: loc}
}

// ReservationConfirmed sends the booking confirmation.
func (n *Notifier) ReservationConfirmed(ctx context.Context, detail dbgen.ReservationDetail) error {
	return n.deliver(ctx, detail, BuildConfirmationEmail, "confirmation")
}

func (n *Notifier) deliver(ctx context.Context, detail dbgen.ReservationDetail, build func(ReservationDetails) Message, kind string) error {
	if n == nil || n.sender == nil {
		return fmt.Errorf("email notifier is not configured")
	}
	recipient := strings.TrimSpace(detail.UserEmail)
	if recipient == "" {
		log.Ctx(ctx).Warn().Str("reservation_id", detail.ID).Str("email_type", kind).Msg("Skipping email for user without address")
		return nil
	}

	message := build(NewReservationDetails(n.venueName, detail, n.location))

	sendCtx, cancel := newEmailContext(ctx, sendTimeout)
	defer cancel()
	if err := n.sender.Send(sendCtx, recipient, message.Subject, message.Body); err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	log.Ctx(ctx).Info().
		Str("reservation_id", detail.ID).
		Str("user_id", detail.UserID).
		Str("email_type", kind).
		Msg("Reservation email sent")
	return nil
}
