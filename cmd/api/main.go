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

	"github.com/quangdm/go-storefront.git/internal/catalog"
	"github.com/quangdm/go-storefront.git/internal/checkout"
	"github.com/quangdm/go-storefront.git/internal/config"
	"github.com/quangdm/go-storefront.git/internal/httpx"
	kafkax "github.com/quangdm/go-storefront.git/internal/kafka"
	"github.com/quangdm/go-storefront.git/internal/metrics"
	"github.com/quangdm/go-storefront.git/internal/orders"
	"github.com/quangdm/go-storefront.git/internal/postgres"
	"github.com/quangdm/go-storefront.git/internal/redisx"
	"github.com/quangdm/go-storefront.git/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	placedProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	placedProd.Start(ctx)
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024)
	statusProd.Start(ctx)

	tokens := users.NewTokenIssuer(cfg.JWTSecret)
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	userRepo := &users.Repo{DB: db}

	coordinator := &checkout.Coordinator{
		Store:   &checkout.PGStore{DB: db},
		Orders:  orderRepo,
		Metrics: metrics.NewCheckout("api"),
	}

	router := httpx.NewRouter()
	(&httpx.AuthHandler{Users: userRepo, Tokens: tokens}).Register(router)
	(&httpx.UsersHandler{Users: userRepo, Tokens: tokens}).Register(router)
	(&httpx.ProductsHandler{Catalog: catalogRepo, Tokens: tokens}).Register(router)
	(&httpx.CheckoutHandler{
		Coordinator: coordinator,
		Orders:      orderRepo,
		Idem:        &httpx.RedisIdem{C: rdb},
		Cache:       &httpx.RedisStatusCache{C: rdb},
		Producer:    placedProd,
		Tokens:      tokens,
		Service:     cfg.ServiceName,
	}).Register(router)
	(&httpx.OrdersHandler{
		Repo:     orderRepo,
		Redis:    rdb,
		Producer: statusProd,
		Tokens:   tokens,
		Workflow: orders.Workflow{AllowRewind: !cfg.StrictStatusFlow},
		Service:  cfg.ServiceName,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
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
	cancel()
	placedProd.WaitClosed()
	statusProd.WaitClosed()
}
