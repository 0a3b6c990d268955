package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	MySQLDSN string

	JWTSecret string

	RabbitMQURL       string
	RabbitExchange    string
	RabbitQueue       string
	RabbitRoutingKey  string
	RabbitConsumerTag string
	DispatchExchange  string
	DispatchPrefix    string

	StreamHeartbeat time.Duration
	PageLimit       int

	OTELServiceName string
	OTLPEndpoint    string
	OTLPInsecure    bool
}

func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:          ":8080",
		JWTSecret:         "dev-secret",
		RabbitExchange:    "booking-events",
		RabbitQueue:       "booking-events.notifications",
		RabbitRoutingKey:  "booking.*",
		RabbitConsumerTag: "notistream-consumer",
		DispatchExchange:  "notification-dispatch",
		DispatchPrefix:    "dispatch",
		StreamHeartbeat:   15 * time.Second,
		PageLimit:         25,
		OTELServiceName:   "notistream",
		OTLPInsecure:      true,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("RABBITMQ_EXCHANGE"); v != "" {
		cfg.RabbitExchange = v
	}
	if v := os.Getenv("RABBITMQ_QUEUE"); v != "" {
		cfg.RabbitQueue = v
	}
	if v := os.Getenv("RABBITMQ_ROUTING_KEY"); v != "" {
		cfg.RabbitRoutingKey = v
	}
	if v := os.Getenv("RABBITMQ_CONSUMER_TAG"); v != "" {
		cfg.RabbitConsumerTag = v
	}
	if v := os.Getenv("DISPATCH_EXCHANGE"); v != "" {
		cfg.DispatchExchange = v
	}
	if v := os.Getenv("DISPATCH_PREFIX"); v != "" {
		cfg.DispatchPrefix = v
	}

	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.OTELServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTLPInsecure = b
		}
	}

	if v := os.Getenv("STREAM_HEARTBEAT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StreamHeartbeat = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageLimit = n
		}
	}

	return cfg
}
