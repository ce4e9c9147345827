package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/quangdm/go-storefront.git/internal/kafka"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/redisx"
)

// Service fans out order events: warms the status cache and emits the
// customer notification line. Safe under redelivery via redis dedup.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.OrderID, orders.StatusPlaced)
		log.Printf("%s: order %s placed for customer %s, total %d cents, %d items",
			s.ServiceName, p.OrderID, p.CustomerID, p.TotalCents, len(p.Items))
	case orders.EventStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.OrderID, p.To)
		log.Printf("%s: order %s moved %s -> %s", s.ServiceName, p.OrderID, p.From, p.To)
	default:
		// other producers share these topics eventually; ignore quietly
	}
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, st orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, st), redisx.TTLStatusCache).Err()
}
