package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskgoo-pos/internal/api"
	"deskgoo-pos/internal/config"
	"deskgoo-pos/internal/db"
	"deskgoo-pos/internal/kitchen"
	"deskgoo-pos/internal/logger"
	"deskgoo-pos/internal/memstore"
	"deskgoo-pos/internal/menu"
	"deskgoo-pos/internal/metrics"
	"deskgoo-pos/internal/middleware"
	"deskgoo-pos/internal/order"
	"deskgoo-pos/internal/table"
	"deskgoo-pos/internal/takeaway"
	"deskgoo-pos/internal/transfer"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
	dialKitchenFunc = func(url, exchange string) (kitchen.Publisher, func() error, error) {
		conn, err := kitchen.Dial(url, exchange)
		if err != nil {
			return nil, nil, err
		}
		return conn.Channel(), conn.Close, nil
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// store is the Record Store the services run against.
type store struct {
	orders    order.Repository
	tables    table.Repository
	takeaways takeaway.Repository
	menu      menu.Repository
	tx        db.TxManager
	close     func() error
}

func newStore(cfg *config.Config) (*store, error) {
	if cfg.DBDriver == config.DriverMemory {
		s := memstore.New()
		s.SeedDemo()
		return &store{
			orders:    s.Orders(),
			tables:    s.Tables(),
			takeaways: s.Takeaways(),
			menu:      s.Menu(),
			tx:        s.TxManager(),
			close:     func() error { return nil },
		}, nil
	}

	database, err := initDBFunc(cfg)
	if err != nil {
		return nil, err
	}
	return sqlStore(database), nil
}

func sqlStore(database *sql.DB) *store {
	return &store{
		orders:    order.NewRepository(database),
		tables:    table.NewRepository(database),
		takeaways: takeaway.NewRepository(database),
		menu:      menu.NewRepository(database),
		tx:        db.NewTxManager(database),
		close:     database.Close,
	}
}

func newKitchen(cfg *config.Config) (kitchen.Notifier, func() error, error) {
	logSink := kitchen.NewLogNotifier()
	if cfg.KitchenSink == config.SinkLog {
		return logSink, func() error { return nil }, nil
	}

	pub, closeFn, err := dialKitchenFunc(cfg.AMQPURL, cfg.KitchenExchange)
	if err != nil {
		return nil, nil, err
	}
	amqpSink := kitchen.NewAMQPNotifier(pub, cfg.KitchenExchange)

	if cfg.KitchenSink == config.SinkBoth {
		return kitchen.Multi{logSink, amqpSink}, closeFn, nil
	}
	return amqpSink, closeFn, nil
}

// newServer wires services and returns the full HTTP handler chain.
func newServer(cfg *config.Config, st *store, sink kitchen.Notifier, reg *metrics.Registry, limiter *middleware.RateLimiter) http.Handler {
	resolver := table.NewResolver(st.tables, st.takeaways)

	h := api.NewHandler(api.Deps{
		Orders:    order.NewService(st.orders, st.tx, resolver),
		Takeaways: takeaway.NewService(st.takeaways, st.orders, st.tx),
		Transfers: transfer.NewService(transfer.Deps{
			Orders:        st.orders,
			Tables:        st.tables,
			Resolver:      resolver,
			Tx:            st.tx,
			Kitchen:       sink,
			Metrics:       reg,
			AllowOccupied: cfg.AllowOccupiedTransfer,
		}),
		Menu:    menu.NewService(st.menu),
		Metrics: reg,
	})
	router := api.NewRouter(h, cfg.CORSOrigins)

	auth := middleware.AuthMiddleware(middleware.AuthOptions{
		Secret:      []byte(cfg.JWTSecret),
		Required:    cfg.AuthRequired,
		InternalKey: cfg.InternalSecretKey,
		Public:      []string{"/health"},
	})

	// Auth runs before logging so request logs carry the staff id.
	return logger.RequestIDMiddleware(
		auth(logger.LoggingMiddleware(limiter.RateLimitMiddleware(router))),
	)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	lg := logger.L()

	st, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	sink, closeSink, err := newKitchen(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(cfg, st, sink, metrics.NewRegistry(), limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		limiter.Run(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		defer stop()
		lg.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("kitchen_sink", cfg.KitchenSink),
			zap.Bool("auth_required", cfg.AuthRequired),
		)
		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	lg.Info("server stopped", zap.Error(err))
	return err
}
