package email

import (
	"context"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

// SendReminder emails the player ahead of an upcoming reservation.
func (n *Notifier) SendReminder(ctx context.Context, detail dbgen.ReservationDetail) error {
	return n.deliver(ctx, detail, BuildReminderEmail, "reminder")
}
