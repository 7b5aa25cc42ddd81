package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"catalogo-precos/config"
	"catalogo-precos/internal/api"
	"catalogo-precos/internal/database"
	"catalogo-precos/internal/events"
	"catalogo-precos/internal/fetcher"
	"catalogo-precos/internal/ingest"
	"catalogo-precos/internal/monitor"
	"catalogo-precos/internal/notifier"
	"catalogo-precos/internal/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuração: %v", err)
	}

	store, err := database.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("banco: %v", err)
	}
	defer store.Close()

	producer, err := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	defer producer.Close()

	notif, err := notifier.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	runner := &ingest.Runner{
		Fetcher:         fetcher.New(30*time.Second, 3),
		Store:           store,
		Workers:         cfg.PageWorkers,
		MaxPageFailures: cfg.MaxPageFailures,
	}
	if producer != nil {
		runner.Events = producer
	}

	registry := scraper.NewRegistry(cfg.MaxPages).Only(cfg.Sources)
	mon := &monitor.Monitor{
		Runner:   runner,
		Registry: registry,
		Notifier: notif,
		Interval: cfg.CheckInterval,
	}
	go mon.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: api.New(store).Router(),
	}
	go func() {
		log.Printf("[api] escutando em %s", cfg.APIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("api: encerramento forçado: %v", err)
	}
}
