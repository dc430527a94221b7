// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dispatch/internal/bus"
	"dispatch/internal/config"
	httptransport "dispatch/internal/http"
	"dispatch/internal/infra"
	"dispatch/internal/modules/courier"
	"dispatch/internal/modules/matching"
	"dispatch/internal/modules/order"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	journal := order.Journal(order.NopJournal{})
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Error("db init", "err", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		journal = order.NewPGJournal(dbPool)
	}

	notifier := bus.New(redisClient)

	courierStore := courier.NewStore(redisClient)
	courierSvc := courier.NewService(courierStore, notifier, log)

	ranker := matching.NewEngine(courierSvc)

	orderStore := order.NewRedisStore(redisClient)
	candidateStore := matching.NewStore(redisClient)
	orderSvc := order.NewService(orderStore, candidateStore, ranker, courierSvc, notifier, journal, cfg.Windows, log)
	defer orderSvc.Shutdown()

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:   orderSvc,
		Couriers: courierSvc,
		Bus:      notifier,
		Log:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
