package config

import (
	"fmt"
	"time"

	libconfig "github.com/md-rashed-zaman/nutriagenda/libs/config"
)

type Config struct {
	ServiceName string
	Port        string
	GRPCPort    string
	LogLevel    string

	DatabaseURL string
	DBMaxConns  int
	RedisURL    string

	KafkaBrokers    []string
	OutboxPollEvery time.Duration
	OutboxBatchSize int

	SMTPHost string
	SMTPPort string
	SMTPFrom string

	JWTSecret          string
	AppointmentMinutes int
	NotifyTimeout      time.Duration
	RateLimitPerMinute int
	CORSOrigins        []string
	Location           *time.Location

	OTLPEndpoint string
	SampleRatio  float64
}

// Load reads the service settings. DATABASE_URL is the only required key.
func Load(l *libconfig.Loader) (Config, error) {
	port, err := l.Port("PORT", "8083")
	if err != nil {
		return Config{}, err
	}
	grpcPort, err := l.Port("GRPC_PORT", "9093")
	if err != nil {
		return Config{}, err
	}
	dbURL, err := l.RequiredString("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	tz := l.String("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	minutes := l.Int("APPOINTMENT_MINUTES", 60)
	if minutes <= 0 {
		return Config{}, fmt.Errorf("APPOINTMENT_MINUTES must be positive (got %d)", minutes)
	}

	return Config{
		ServiceName:        l.String("SERVICE_NAME", "agenda-service"),
		Port:               port,
		GRPCPort:           grpcPort,
		LogLevel:           l.String("LOG_LEVEL", "info"),
		DatabaseURL:        dbURL,
		DBMaxConns:         l.Int("DB_MAX_CONNS", 10),
		RedisURL:           l.String("REDIS_URL", ""),
		KafkaBrokers:       l.StringSlice("KAFKA_BROKERS", nil),
		OutboxPollEvery:    l.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		OutboxBatchSize:    l.Int("OUTBOX_BATCH_SIZE", 50),
		SMTPHost:           l.String("SMTP_HOST", ""),
		SMTPPort:           l.String("SMTP_PORT", "25"),
		SMTPFrom:           l.String("SMTP_FROM", "agenda@nutriagenda.local"),
		JWTSecret:          l.String("AUTH_JWT_SECRET", ""),
		AppointmentMinutes: minutes,
		NotifyTimeout:      l.Duration("NOTIFY_TIMEOUT", 10*time.Second),
		RateLimitPerMinute: l.Int("RATE_LIMIT_PER_MINUTE", 120),
		CORSOrigins:        l.StringSlice("CORS_ORIGINS", nil),
		Location:           loc,
		OTLPEndpoint:       l.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SampleRatio:        float64(l.Int("OTEL_SAMPLE_PERCENT", 100)) / 100,
	}, nil
}

func (c Config) AppointmentLength() time.Duration {
	return time.Duration(c.AppointmentMinutes) * time.Minute
}
