package di

import (
	"context"
	"fmt"
	"time"

	"ScreenerView/internal/domain/repository"
	"ScreenerView/internal/handler/api"
	"ScreenerView/internal/handler/ws"
	internalrepo "ScreenerView/internal/repository"
	"ScreenerView/internal/service/cache"
	"ScreenerView/internal/service/ratelimit"
	"ScreenerView/internal/services/indicators"
	"ScreenerView/internal/services/parser"
	"ScreenerView/internal/services/partition"
	"ScreenerView/internal/services/window"
	"ScreenerView/internal/usecase"
	pkgch "ScreenerView/pkg/clickhouse"
	"ScreenerView/pkg/config"
	xhttp "ScreenerView/pkg/http"
	pkgkafka "ScreenerView/pkg/kafka"
	"ScreenerView/pkg/logger"
	"ScreenerView/pkg/metrics"
	"ScreenerView/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or nil when metrics
// are disabled.
func ProvideMetrics(cfg *config.Config) *metrics.Recorder {
	if cfg.Metrics.Disabled {
		return nil
	}
	return metrics.New()
}

// ProvideCache returns the source cache, nil when caching is off.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.BytesCache, func(), error) {
	cc := cfg.Source.Cache
	if !cc.Enabled {
		return nil, func() {}, nil
	}
	if !cc.Redis.Enabled {
		return cache.NewTTLCache(), func() {}, nil
	}

	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cc.Redis.Addr,
		Password: cc.Redis.Password,
		DB:       cc.Redis.DB,
		Prefix:   cc.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", logger.String("addr", cc.Redis.Addr))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideSource builds the configured data source, wrapped by the cache when
// one is provided.
func ProvideSource(cfg *config.Config, bc cache.BytesCache, l *logger.Logger) (repository.Source, func(), error) {
	var (
		src     repository.Source
		cleanup = func() {}
	)

	switch cfg.Source.Type {
	case "http":
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Source.Timeout),
			xhttp.WithHeader("Accept", "text/csv, */*"),
		)
		src = internalrepo.NewHTTPSource(client, cfg.Source.URL, cfg.Source.ChunkSize)
	case "file":
		src = internalrepo.NewFileSource(cfg.Source.Path, cfg.Source.ChunkSize)
	case "clickhouse":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ch, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(4, 2),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.Source.Timeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		chs, err := internalrepo.NewClickHouseSource(ch, cfg.Source.Table, cfg.Source.ChunkSize)
		if err != nil {
			_ = ch.Close()
			return nil, nil, err
		}
		src = chs
		cleanup = func() { _ = ch.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}

	if bc != nil {
		src = internalrepo.NewCachedSource(src, bc, cfg.Source.Cache.TTL, l)
	}
	l.Info("source configured", logger.String("source", src.Name()), logger.Bool("cached", bc != nil))
	return src, cleanup, nil
}

// ProvideEventProducer creates the Kafka producer for status events, nil
// unless events.kafka.enabled is set.
func ProvideEventProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	kc := cfg.Events.Kafka
	if !kc.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(kc.Brokers),
		pkgkafka.WithTopic(kc.Topic),
		pkgkafka.WithCompression(kc.Compression),
		pkgkafka.WithRequiredAcks(kc.RequiredAcks),
		pkgkafka.WithTimeouts(kc.WriteTimeout, kc.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideHub creates the websocket status hub.
func ProvideHub(l *logger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideNotifier fans status events out to the hub and, when configured,
// to Kafka.
func ProvideNotifier(hub *ws.Hub, producer *pkgkafka.Producer) repository.Notifier {
	n := internalrepo.MultiNotifier{hub}
	if producer != nil {
		n = append(n, internalrepo.NewKafkaNotifier(producer))
	}
	return n
}

// ProvideScreener builds the screener core from config.
func ProvideScreener(cfg *config.Config, l *logger.Logger, rec *metrics.Recorder, n repository.Notifier) (*usecase.Screener, error) {
	policy, err := window.FromConfig(cfg.Window.Policy, cfg.Window.Size)
	if err != nil {
		return nil, err
	}
	anchor, err := window.ParseAnchor(cfg.Window.Anchor)
	if err != nil {
		return nil, err
	}
	dupes, err := partition.ParseDuplicatePolicy(cfg.Filters.Duplicates)
	if err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithPolicy(policy),
		usecase.WithAnchor(anchor),
		usecase.WithSchema(parser.DefaultSchema().WithAliases(cfg.Schema.Aliases)),
		usecase.WithDuplicatePolicy(dupes),
		usecase.WithFlagField(cfg.Filters.FlagField),
		usecase.WithNotifier(n),
		usecase.WithLogger(l),
	}
	if rec != nil {
		opts = append(opts, usecase.WithMetrics(rec))
	}
	if cfg.Indicators.Enrich {
		opts = append(opts, usecase.WithEnricher(indicators.Enricher(indicators.DefaultConfig())))
	}
	l.Info("screener configured",
		logger.String("window", policy.Name()),
		logger.String("anchor", string(anchor)),
		logger.String("duplicates", string(dupes)),
		logger.Bool("enrich", cfg.Indicators.Enrich),
	)
	return usecase.NewScreener(opts...), nil
}

// ProvideLimiter throttles filter commands per client address.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Burst)
}

func ProvideAPIHandler(l *logger.Logger, scr *usecase.Screener, src repository.Source, lim *ratelimit.Limiter) *api.ScreenerEchoHandler {
	return api.NewScreenerEchoHandler(l, scr, src, lim)
}

// ProvideHTTPServer assembles the echo server with the API and websocket
// routes.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, rec *metrics.Recorder, h *api.ScreenerEchoHandler, hub *ws.Hub) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithLogger(l),
	}
	if rec != nil {
		opts = append(opts, xhttp.WithRecorder(rec), xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	return xhttp.NewServer(xhttp.Handlers{h, hub}, opts...)
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, l *logger.Logger, scr *usecase.Screener, src repository.Source, srv *xhttp.Server) *server.App {
	return server.New(cfg, l, scr, src, srv)
}
