package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"limit-order-book/src/api"
	"limit-order-book/src/book"
	"limit-order-book/src/infra"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg := infra.DefaultConfig()
	if *configPath != "" {
		loaded, err := infra.LoadConfig(*configPath)
		if err != nil {
			os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}

	log := infra.NewLogger(cfg)

	// The book owns the good-for-day sweep; Close joins it on the way out.
	ob := book.NewOrderBookWithCutoff(cfg.Book.PruneHour)
	defer ob.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(ob, cfg, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
