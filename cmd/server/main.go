package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healer-app/messaging/internal/auth"
	"github.com/healer-app/messaging/internal/chat"
	"github.com/healer-app/messaging/internal/config"
	"github.com/healer-app/messaging/internal/db"
	"github.com/healer-app/messaging/internal/httpapi"
	"github.com/healer-app/messaging/internal/realtime"
	"github.com/healer-app/messaging/internal/store/rabbitmq"
	"github.com/healer-app/messaging/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&chat.Message{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	var cache chat.ConversationCache
	if cfg.ConversationCacheTTL > 0 {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			time.Duration(cfg.ConversationCacheTTL)*time.Second)
		defer rds.Close()
		cache = rds
	}

	chatSvc := chat.NewService(chat.NewRepo(gdb), cache)

	// The offline publisher is a best-effort collaborator; the server runs
	// without it if the broker is unreachable.
	var offline realtime.OfflinePublisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("[main] rabbit unavailable, offline events disabled: %v", err)
		} else {
			defer pub.Close()
			offline = pub
		}
	}

	presence := realtime.NewPresence()
	protocol := realtime.NewProtocol(presence, chatSvc, offline)
	gateway := realtime.NewGateway(auth.NewJWTVerifier(cfg.JWTSecret), presence, protocol)

	router := httpapi.NewRouter(cfg, chatSvc, gateway)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server started addr=%s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
