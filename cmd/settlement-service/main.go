package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/notify"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/engine"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/feed"
	shttp "github.com/radieske/parimutuel-settlement/internal/settlement-service/http"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/producer"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/repo"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/ws"
	"github.com/radieske/parimutuel-settlement/internal/shared/cache"
	"github.com/radieske/parimutuel-settlement/internal/shared/config"
	"github.com/radieske/parimutuel-settlement/internal/shared/db"
	"github.com/radieske/parimutuel-settlement/internal/shared/kafka"
	"github.com/radieske/parimutuel-settlement/internal/shared/logger"
	"github.com/radieske/parimutuel-settlement/internal/shared/metrics"
)

// store é o journal de chamadas com leitura para replay
type store interface {
	chain.Journal
	Load(ctx context.Context) ([]chain.Receipt, error)
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Inicializa logger estruturado
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("service stopped", zap.Error(err))
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSettlement(reg)

	// journal de chamadas
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// bus de notificações e sinks
	bus := notify.NewBus(log.Named("notify"), cfg.NotifyQueue)
	bus.OnDelivered = func(sub string) { m.Notifications.WithLabelValues(sub, "delivered").Inc() }
	bus.OnDrop = func(sub string) { m.Notifications.WithLabelValues(sub, "dropped").Inc() }
	bus.OnError = func(sub string, _ error) { m.Notifications.WithLabelValues(sub, "error").Inc() }
	defer bus.Close()
	bus.Subscribe(notify.LogSubscriber{Log: log.Named("notification")})

	hub := ws.NewHub(log.Named("ws"), func(*http.Request) bool { return true })

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		log.Info("redis connected")
		bus.Subscribe(producer.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel))
		ws.StartRedisSubscriber(ctx, log.Named("ws"), rdb, cfg.RedisPubSubChannel, hub)
	} else {
		bus.Subscribe(hub)
	}

	if cfg.KafkaBrokers != "" {
		writer := kafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		bus.Subscribe(producer.NewKafkaPublisher(writer, cfg.KafkaTopic))
		log.Info("kafka writer ready", zap.String("prefix", cfg.TopicPrefix))
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		bus.Subscribe(producer.NewNatsPublisher(nc, cfg.NATSSubjectPrefix))
		log.Info("nats connected", zap.String("url", cfg.NATSURL))
	}

	// motor: replay do journal e vínculos iniciais
	owner := common.HexToAddress(cfg.OwnerAddress)
	operator := common.HexToAddress(cfg.OperatorAddress)
	eng := engine.New(log.Named("engine"), owner, engine.Options{
		Journal:   st,
		Publisher: bus,
		Metrics:   m,
		Faucet:    cfg.FaucetEnabled,
	})
	receipts, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	if err := eng.Bootstrap(ctx, receipts, operator); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	api := shttp.NewServer(log.Named("http"), eng, hub)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.NewMetricsServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return eng.CheckConservation()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api srv: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics srv: %w", err)
		}
		return nil
	})
	if cfg.ResultFeedEnabled {
		reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchResults, cfg.ResultFeedGroup)
		defer reader.Close()
		consumer := &feed.Consumer{
			Log:      log.Named("feed"),
			Reader:   reader,
			Setter:   eng,
			Operator: operator,
			OnStage:  func(stage string) { m.FeedMessages.WithLabelValues(stage).Inc() },
		}
		g.Go(func() error {
			log.Info("result feed consuming", zap.String("topic", cfg.TopicMatchResults), zap.String("group", cfg.ResultFeedGroup))
			return consumer.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		j, err := repo.NewPostgres(ctx, pg)
		if err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		log.Info("postgres journal ready")
		return j, func() { _ = pg.Close() }, nil
	case "sqlite":
		lite, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		j, err := repo.NewSQLite(ctx, lite)
		if err != nil {
			_ = lite.Close()
			return nil, nil, err
		}
		log.Info("sqlite journal ready", zap.String("path", cfg.SQLitePath))
		return j, func() { _ = lite.Close() }, nil
	default:
		log.Warn("in-memory journal: state is lost on restart")
		return repo.NewMemory(), func() {}, nil
	}
}
