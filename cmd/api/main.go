package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adiwijaya/go-checkout-payments/internal/config"
	"github.com/adiwijaya/go-checkout-payments/internal/events"
	"github.com/adiwijaya/go-checkout-payments/internal/httpx"
	"github.com/adiwijaya/go-checkout-payments/internal/kafkax"
	"github.com/adiwijaya/go-checkout-payments/internal/ledger"
	"github.com/adiwijaya/go-checkout-payments/internal/orders"
	"github.com/adiwijaya/go-checkout-payments/internal/payments"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// one producer per topic
	pOrder := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	pInit := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPaymentInitiated, 1024)
	pCapt := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPaymentCaptured, 1024)
	pFail := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicPaymentFailed, 1024)
	producers := []*kafkax.Producer{pOrder, pInit, pCapt, pFail}
	for _, p := range producers {
		p.Start(ctx)
	}

	orderRepo := &orders.Repo{DB: db}
	ledgerRepo := &ledger.Repo{DB: db}
	provider := payments.NewPayPalClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret)

	svc := &payments.Service{
		Orders:       orderRepo,
		Ledger:       ledgerRepo,
		Provider:     provider,
		PubInitiated: pInit,
		PubCaptured:  pCapt,
		PubFailed:    pFail,
		ServiceName:  cfg.ServiceName,
		ReturnURL:    cfg.PaymentReturnURL,
		CancelURL:    cfg.PaymentCancelURL,
	}

	router := httpx.NewRouter()
	(&httpx.ProductsHandler{Repo: orderRepo}).Register(router)
	(&httpx.OrdersHandler{
		Repo:         orderRepo,
		Ledger:       ledgerRepo,
		Cache:        &redisx.StatusCache{R: rdb},
		Producer:     pOrder,
		Service:      cfg.ServiceName,
		AuthRequired: cfg.AuthRequired,
	}).Register(router)
	(&httpx.PaymentsHandler{Svc: svc, AuthRequired: cfg.AuthRequired}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
