package email

import (
	"context"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

// ReservationCancelled tells the player their reservation was cancelled.
func (n *Notifier) ReservationCancelled(ctx context.Context, detail dbgen.ReservationDetail) error {
	return n.deliver(ctx, detail, BuildCancellationEmail, "cancellation")
}
