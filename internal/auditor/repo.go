package auditor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adiwijaya/go-checkout-payments/internal/events"
)

type Repo struct{ DB *pgxpool.Pool }

// Record appends one audit row per event. The event id is the primary key,
// so replays are absorbed by ON CONFLICT.
func (r *Repo) Record(ctx context.Context, env events.Envelope, orderID, paymentID string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payment_events(event_id, event_type, order_id, payment_id, occurred_at, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING`,
		env.EventID, env.EventType, orderID, paymentID, env.OccurredAt, []byte(env.Payload))
	return err
}
