package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

const (
	KeyReservationConfirmed = "reservation.confirmed"
	KeyReservationCancelled = "reservation.cancelled"
)

// JSONPublisher is satisfied by *Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ReservationEvent is the message body for every reservation event.
type ReservationEvent struct {
	Event              string     `json:"event"`
	ReservationID      string     `json:"reservation_id"`
	UserID             string     `json:"user_id"`
	CourtID            string     `json:"court_id"`
	CourtName          string     `json:"court_name"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	OccurredAt         time.Time  `json:"occurred_at"`
}

// ReservationNotifier turns reservation outcomes into published events.
type ReservationNotifier struct {
	publisher JSONPublisher
	now       func() time.Time
}

func NewReservationNotifier(publisher JSONPublisher) *ReservationNotifier {
	return &ReservationNotifier{publisher: publisher, now: time.Now}
}

func (n *ReservationNotifier) ReservationConfirmed(ctx context.Context, detail dbgen.ReservationDetail) error {
	return n.publish(ctx, KeyReservationConfirmed, detail)
}

func (n *ReservationNotifier) ReservationCancelled(ctx context.Context, detail dbgen.ReservationDetail) error {
	return n.publish(ctx, KeyReservationCancelled, detail)
}

func (n *ReservationNotifier) publish(ctx context.Context, key string, detail dbgen.ReservationDetail) error {
	event := ReservationEvent{
		Event:         key,
		ReservationID: detail.ID,
		UserID:        detail.UserID,
		CourtID:       detail.CourtID,
		CourtName:     detail.CourtName,
		StartTime:     detail.StartTime.UTC(),
		EndTime:       detail.EndTime.UTC(),
		Status:        detail.Status,
		OccurredAt:    n.now().UTC(),
	}
	if detail.CancellationReason.Valid {
		reason := detail.CancellationReason.String
		event.CancellationReason = &reason
	}
	if detail.CancelledAt.Valid {
		cancelledAt := detail.CancelledAt.Time.UTC()
		event.CancelledAt = &cancelledAt
	}

	if err := n.publisher.PublishJSON(ctx, key, event); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	log.Ctx(ctx).Debug().Str("reservation_id", detail.ID).Str("routing_key", key).Msg("Reservation event published")
	return nil
}
