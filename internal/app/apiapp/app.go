package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dasilvacsv/jadRifas-sub000/internal/config"
	"github.com/dasilvacsv/jadRifas-sub000/internal/infra/httpclient"
	s3infra "github.com/dasilvacsv/jadRifas-sub000/internal/infra/s3"
	pgrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/postgres"
	redrepo "github.com/dasilvacsv/jadRifas-sub000/internal/repo/redis"
	adminauthsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/adminauth"
	drawsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/draws"
	mediasvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/media"
	notifysvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/notify"
	purchasesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/purchases"
	rafflesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/raffles"
	ratesvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rate"
	ratessvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/rates"
	referralsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/referrals"
	ticketsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/tickets"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	auth       *adminauthsvc.Service
	storage    *mediasvc.S3Storage
	purchases  *pgrepo.PurchaseRepo
	tickets    *pgrepo.TicketRepo
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	raffleRepo := pgrepo.NewRaffleRepo(pool)
	ticketRepo := pgrepo.NewTicketRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	referralRepo := pgrepo.NewReferralRepo(pool)
	paymentMethodRepo := pgrepo.NewPaymentMethodRepo(pool)
	raffleImageRepo := pgrepo.NewRaffleImageRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(raffleImageRepo, mediaStorage)

	var notifier *notifysvc.Dispatcher
	if cfg.Notify.WebhookURL != "" {
		notifier = notifysvc.NewDispatcher(log,
			notifysvc.NewWebhookSender(httpclient.New(cfg.Notify.Timeout), cfg.Notify.WebhookURL))
	} else {
		notifier = notifysvc.NewDispatcher(log)
	}

	ticketService := ticketsvc.NewService(ticketsvc.Dependencies{
		Pool:    pool,
		Raffles: raffleRepo,
		Tickets: ticketRepo,
	}, ticketsvc.Config{
		PoolCapacity:       cfg.Raffle.PoolCapacity,
		HoldDuration:       cfg.Raffle.HoldDuration,
		MaxTicketsPerOrder: cfg.Raffle.MaxTicketsPerOrder,
	})
	purchaseService := purchasesvc.NewService(purchasesvc.Dependencies{
		Pool:      pool,
		Purchases: purchaseRepo,
		Tickets:   ticketRepo,
		Raffles:   raffleRepo,
		Referrals: referralRepo,
		Storage:   mediaService,
		Notifier:  notifier,
	}, purchasesvc.Config{
		PoolCapacity: cfg.Raffle.PoolCapacity,
	})
	raffleService := rafflesvc.NewService(rafflesvc.Dependencies{
		Raffles: raffleRepo,
		Images:  raffleImageRepo,
		Storage: mediaStorage,
		Logger:  log,
	}, rafflesvc.Config{
		PoolCapacity: cfg.Raffle.PoolCapacity,
	})
	drawService := drawsvc.NewService(drawsvc.Dependencies{
		Pool:    pool,
		Raffles: raffleRepo,
		Tickets: ticketRepo,
	})
	referralService := referralsvc.NewService(referralRepo, referralsvc.Config{
		CommissionCents: int64(cfg.Raffle.CommissionUSD * 100),
	})
	ratesService := ratessvc.NewService(
		ratessvc.NewHTTPProvider(httpclient.New(cfg.Rates.Timeout), cfg.Rates.ProviderURL, cfg.Rates.FieldPath),
		cacheRepo,
		ratessvc.Config{CacheTTL: cfg.Rates.CacheTTL, Fallback: cfg.Rates.Fallback},
		log,
	)
	authService := adminauthsvc.NewService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, cfg.Admin.SessionIdle, userRepo, sessionRepo)
	reserveLimiter := ratesvc.NewLimiter(rateRepo, cfg.Raffle.ReservePerMinute)

	RegisterRoutes(r, Dependencies{
		RaffleService:     raffleService,
		TicketService:     ticketService,
		PurchaseService:   purchaseService,
		DrawService:       drawService,
		ReferralService:   referralService,
		MediaService:      mediaService,
		RatesService:      ratesService,
		AuthService:       authService,
		PaymentMethodRepo: paymentMethodRepo,
		ReserveLimiter:    reserveLimiter,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		auth:       authService,
		storage:    mediaStorage,
		purchases:  purchaseRepo,
		tickets:    ticketRepo,
		httpRouter: r,
	}, nil
}

// Bootstrap provisions startup state that needs the backing services
// to be reachable: the admin account and the media bucket. Failures
// are logged, not fatal, matching the degraded-mode init above.
func (a *App) Bootstrap(ctx context.Context) {
	if a.cfg.Admin.Email != "" && a.cfg.Admin.Password != "" && a.postgres != nil {
		if err := a.auth.ProvisionAdmin(ctx, a.cfg.Admin.Email, a.cfg.Admin.Password); err != nil {
			a.logger.Warn("admin provisioning failed", zap.Error(err))
		}
	}
	if a.s3 != nil {
		if err := a.storage.EnsureBucket(ctx); err != nil {
			a.logger.Warn("media bucket init failed", zap.Error(err))
		}
	}
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Postgres exposes the pool for background jobs wired in cmd/api.
func (a *App) Postgres() *pgxpool.Pool {
	return a.postgres
}

// CleanupStores returns the repos and storage the retention job runs
// against; ok is false while postgres is degraded.
func (a *App) CleanupStores() (tickets *pgrepo.TicketRepo, purchases *pgrepo.PurchaseRepo, storage *mediasvc.S3Storage, ok bool) {
	if a.postgres == nil {
		return nil, nil, nil, false
	}
	return a.tickets, a.purchases, a.storage, true
}
