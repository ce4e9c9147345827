package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quangdm/go-storefront.git/internal/config"
	kafkax "github.com/quangdm/go-storefront.git/internal/kafka"
	"github.com/quangdm/go-storefront.git/internal/notify"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	placed := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderPlaced, workers)
	status := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicStatusChanged, workers)

	for _, c := range []*kafkax.Consumer{placed, status} {
		go func(c *kafkax.Consumer) {
			if err := c.Start(ctx, svc.HandleOrderEvent); err != nil {
				log.Printf("consumer exit: %v", err)
				cancel()
			}
		}(c)
	}
	log.Printf("notifier started: group=%s workers=%d", group, workers)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
