package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safarilabs/travel-payments/internal/notification"
	"github.com/safarilabs/travel-payments/pkg/idempotency"
	"github.com/safarilabs/travel-payments/pkg/logging"
	"github.com/safarilabs/travel-payments/pkg/shutdown"
	"github.com/safarilabs/travel-payments/pkg/tracing"
)

func main() {
	log := logging.New()
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	kafkaAddr := env("KAFKA_ADDR", "localhost:9092")
	redisAddr := env("REDIS_ADDR", "localhost:6379")
	jaeger := env("JAEGER_URL", "http://localhost:14268/api/traces")
	topic := env("NOTIFY_TOPIC", "payment.notifications")

	smtpCfg := notification.SMTPConfig{
		Host:     env("SMTP_HOST", "localhost"),
		Port:     envInt("SMTP_PORT", 587),
		Username: env("SMTP_USER", ""),
		Password: env("SMTP_PASSWORD", ""),
		From:     env("SMTP_FROM", ""),
	}

	tp, err := tracing.Init(ctx, "notification-worker", jaeger, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	redisDB := redis.NewClient(&redis.Options{Addr: redisAddr})
	idem := idempotency.NewStore(redisDB, 10*time.Minute)

	mailer := notification.NewMailer(log, smtpCfg)
	consumer := notification.NewConsumer(log, []string{kafkaAddr}, topic, "notification-worker", mailer, idem)

	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("notification-worker shutdown")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
