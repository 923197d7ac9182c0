package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/db"
	"github.com/suPer8Hu/gopherchat/internal/directory"
	"github.com/suPer8Hu/gopherchat/internal/fanout"
	"github.com/suPer8Hu/gopherchat/internal/httpapi"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gopherchat/internal/logger"
	"github.com/suPer8Hu/gopherchat/internal/models"
	"github.com/suPer8Hu/gopherchat/internal/store/rabbitmq"
	"github.com/suPer8Hu/gopherchat/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New().With("app", "api")
	defer log.Sync()

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("connect database", "error", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &chat.Conversation{}, &chat.Message{}); err != nil {
		log.Fatal("automigrate", "error", err)
	}

	// unread counters degrade gracefully when redis is absent
	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds, err = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, unread counts disabled", "error", err)
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	// same for the message-event queue feeding the unread worker
	var events chat.EventPublisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, message events disabled", "error", err)
		} else {
			events = pub
			defer pub.Close()
		}
	}

	hub := fanout.NewHub(log)
	chatSvc := chat.NewService(chat.NewRepo(gdb), hub, events, log)
	dir := directory.NewService(gdb)

	h := handlers.NewHandler(cfg, chatSvc, dir, rds, log)
	router := httpapi.NewRouter(cfg, h, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", "error", err)
		}
	}()
	log.Info("api listening", "addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
