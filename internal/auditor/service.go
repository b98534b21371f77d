// Package auditor consumes the payment event stream into an append-only
// audit trail and keeps the order-status cache fresh. It never drives state:
// a ledger entry that was initiated and abandoned stays as it is, no matter
// what the auditor replays.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/adiwijaya/go-checkout-payments/internal/events"
	"github.com/adiwijaya/go-checkout-payments/internal/kafkax"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
	"github.com/adiwijaya/go-checkout-payments/internal/redisx"
)

type Service struct {
	Repo        *Repo
	Redis       *redis.Client
	ServiceName string
}

// HandleEvent is wired as the consumer handler for every payment topic.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup by event id before touching the database
	dkey := fmt.Sprintf(redisx.KeyDedup, "auditor", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	orderID, paymentID, err := s.identify(env)
	if err != nil {
		return err
	}
	if err := s.Repo.Record(ctx, env, orderID, paymentID); err != nil {
		return err
	}

	if env.EventType == events.EventPaymentCaptured {
		cache := redisx.StatusCache{R: s.Redis}
		cache.SetStatus(ctx, orderID, string(orders.StatusPaid))
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func (s *Service) identify(env events.Envelope) (orderID, paymentID string, err error) {
	switch env.EventType {
	case events.EventPaymentInitiated:
		p, err := kafkax.UnwrapPayload[events.PaymentInitiatedPayload](env.Payload)
		return p.OrderID, p.PaymentID, err
	case events.EventPaymentCaptured:
		p, err := kafkax.UnwrapPayload[events.PaymentCapturedPayload](env.Payload)
		return p.OrderID, p.PaymentID, err
	case events.EventPaymentFailed:
		p, err := kafkax.UnwrapPayload[events.PaymentFailedPayload](env.Payload)
		return p.OrderID, p.PaymentID, err
	default:
		// unknown event types are recorded against the correlation id only
		return env.CorrelationID, "", nil
	}
}
