package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig
	Observe   ObserveConfig
	Providers ProvidersConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`

	// ProviderOverridesFile optionally points to a YAML file tuning provider
	// batching limits without a rebuild.
	ProviderOverridesFile string `env:"PROVIDER_OVERRIDES_FILE"`
}

// ProvidersConfig groups per-provider connection settings. API URLs are
// configurable for test use; batching limits default to each provider's
// published maximums.
type ProvidersConfig struct {
	// RequestTimeoutMillis bounds any single outbound provider request.
	RequestTimeoutMillis int `env:"CONNECT_REQUEST_TIMEOUT_MILLIS, default=10000"`

	Instantly     InstantlyConfig
	Apollo        ApolloConfig
	Phantombuster PhantombusterConfig
	Sinch         SinchConfig
}

type InstantlyConfig struct {
	APIURL             string `env:"INSTANTLY_API_URL, default=https://api.instantly.ai/api/v2"`
	ChunkSize          int    `env:"INSTANTLY_CHUNK_SIZE, default=1000"`
	RequestDelayMillis int    `env:"INSTANTLY_REQUEST_DELAY_MILLIS, default=1000"`
}

type ApolloConfig struct {
	APIURL string `env:"APOLLO_API_URL, default=https://api.apollo.io/v1"`

	// The contact endpoint accepts one prospect per request; requests are
	// issued sequentially with the configured delay between them.
	ChunkSize          int `env:"APOLLO_CHUNK_SIZE, default=1"`
	RequestDelayMillis int `env:"APOLLO_REQUEST_DELAY_MILLIS, default=250"`
}

type PhantombusterConfig struct {
	APIURL string `env:"PHANTOMBUSTER_API_URL, default=https://api.phantombuster.com/api/v2"`
}

type SinchConfig struct {
	APIURL             string `env:"SINCH_API_URL, default=https://sms.api.sinch.com/xms/v1"`
	TokenURL           string `env:"SINCH_TOKEN_URL, default=https://auth.sinch.com/oauth2/token"`
	ChunkSize          int    `env:"SINCH_CHUNK_SIZE, default=100"`
	RequestDelayMillis int    `env:"SINCH_REQUEST_DELAY_MILLIS, default=500"`
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=prospect-connect"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	if cfg.Server.ProviderOverridesFile != "" {
		if err := cfg.Providers.ApplyOverridesFile(cfg.Server.ProviderOverridesFile); err != nil {
			return cfg, fmt.Errorf("invalid provider overrides: %w", err)
		}
	}

	if err := cfg.Providers.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid provider configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the provider configuration is usable.
func (p *ProvidersConfig) Validate() error {
	if p.RequestTimeoutMillis <= 0 {
		return fmt.Errorf("CONNECT_REQUEST_TIMEOUT_MILLIS must be positive")
	}
	for name, size := range map[string]int{
		"instantly": p.Instantly.ChunkSize,
		"apollo":    p.Apollo.ChunkSize,
		"sinch":     p.Sinch.ChunkSize,
	} {
		if size <= 0 {
			return fmt.Errorf("%s chunk size must be positive", name)
		}
	}

	return nil
}
