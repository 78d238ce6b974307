package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/events"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/ap"
	"github.com/odyssey-erp/odyssey-ledger/internal/ar"
	"github.com/odyssey-erp/odyssey-ledger/internal/expenses"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata/products"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/reconciliation"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Ledger bundles the wired services and the resources they hold.
type Ledger struct {
	Pool    *pgxpool.Pool
	Metrics *observability.Metrics

	Accounts       *accounts.Service
	Settings       *settings.Service
	Products       *products.Service
	Journals       *journals.Service
	Ledger         *ledger.Service
	Reports        *reports.Service
	Invoices       *ar.Service
	Expenses       *expenses.Service
	Bills          *ap.Service
	Reconciliation *reconciliation.Service

	redis     *redis.Client
	publisher *events.KafkaPublisher
	logger    *slog.Logger
}

// Open connects to Postgres, Redis and Kafka and wires every service. Redis
// and Kafka are optional; without them reports are built uncached and change
// events are not published. Test mode never touches either.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Ledger, error) {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return nil, err
	}
	l := &Ledger{Pool: pool, Metrics: observability.NewMetrics(), logger: logger}

	redisAddr, brokers := cfg.RedisAddr, cfg.KafkaBrokers
	if InTestMode() {
		redisAddr, brokers = "", nil
	}
	l.redis, err = cache.New(ctx, redisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
		l.redis = nil
	}
	reportCache := reports.NewCache(l.redis, cfg.ReportCacheTTL)

	var publisher events.Publisher
	if len(brokers) > 0 {
		l.publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		publisher = l.publisher
	}
	dispatcher := events.NewDispatcher(reportCache, publisher, logger)
	dispatcher.SetCounter(l.Metrics)

	l.Accounts = accounts.NewService(accounts.NewRepository(pool))
	l.Settings = settings.NewService(settings.NewRepository(pool))
	l.Products = products.NewService(products.NewRepository(pool))
	l.Journals = journals.NewService(journals.NewRepository(pool), shared.NewAuditLogger(pool), dispatcher, logger)
	l.Ledger = ledger.NewService(ledger.NewRepository(pool))
	l.Reports = reports.NewService(l.Ledger, reports.NewDocumentRepository(pool), reportCache, logger)
	l.Invoices = ar.NewService(ar.NewRepository(pool), l.Settings, l.Products, l.Journals)
	l.Expenses = expenses.NewService(expenses.NewRepository(pool), l.Settings, l.Journals)
	l.Bills = ap.NewService(ap.NewRepository(pool), l.Settings, l.Journals)
	l.Reconciliation = reconciliation.NewService(reconciliation.NewRepository(pool), l.Settings, l.Journals)
	return l, nil
}

// Close releases every resource, logging failures.
func (l *Ledger) Close() {
	if l == nil {
		return
	}
	if l.publisher != nil {
		if err := l.publisher.Close(); err != nil {
			l.logger.Warn("kafka close", slog.Any("error", err))
		}
	}
	if l.redis != nil {
		if err := l.redis.Close(); err != nil {
			l.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	l.Pool.Close()
}
