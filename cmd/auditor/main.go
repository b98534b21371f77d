package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/adiwijaya/go-checkout-payments/internal/auditor"
	"github.com/adiwijaya/go-checkout-payments/internal/config"
	"github.com/adiwijaya/go-checkout-payments/internal/events"
	"github.com/adiwijaya/go-checkout-payments/internal/kafkax"
	"github.com/adiwijaya/go-checkout-payments/internal/postgres"
	"github.com/adiwijaya/go-checkout-payments/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &auditor.Service{
		Repo:        &auditor.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-auditor",
	}

	group := getenv("AUDITOR_GROUP", "payment-auditor")
	workers := mustAtoi(os.Getenv("AUDITOR_WORKERS"), "4")

	topics := []string{
		events.TopicPaymentInitiated,
		events.TopicPaymentCaptured,
		events.TopicPaymentFailed,
	}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Printf("auditor consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down auditor...")
	cancel()
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
