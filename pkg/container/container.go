package container

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"vnpay-broker/internal/config"
	"vnpay-broker/internal/domains/payment/gateway"
	"vnpay-broker/internal/domains/payment/gateway/vnpay"
	paymentHandler "vnpay-broker/internal/domains/payment/handler"
	paymentRepo "vnpay-broker/internal/domains/payment/repository"
	paymentService "vnpay-broker/internal/domains/payment/service"
	ticketHandler "vnpay-broker/internal/domains/ticket/handler"
	ticketService "vnpay-broker/internal/domains/ticket/service"
	infraCache "vnpay-broker/internal/infrastructure/cache"
	"vnpay-broker/internal/shared/middleware"
	"vnpay-broker/pkg/cache"
	"vnpay-broker/pkg/logger"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa TẤT CẢ dependencies của application
// Struct này là "root" của dependency graph
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config *config.Config
	Cache  cache.Cache // nil unless CALLBACK_STORE=redis
	redis  *infraCache.RedisClient

	RateLimiter *middleware.IPRateLimiter
	Scheduler   *cron.Cron // nil unless the memory store is swept

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	CallbackStore paymentRepo.CallbackStore

	// ========================================
	// GATEWAY + SERVICE LAYER
	// ========================================
	VNPayGateway   gateway.VNPayGateway
	PaymentService paymentService.PaymentService
	TicketRenderer *ticketService.Renderer

	// ========================================
	// HANDLER LAYER (HTTP)
	// ========================================
	PaymentHandler *paymentHandler.PaymentHandler
	TicketHandler  *ticketHandler.TicketHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer loads config from the environment and builds the graph
func NewContainer() (*Container, error) {
	log.Info().Msg("📋 Loading configuration...")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	log.Info().Str("env", cfg.App.Environment).Msg("✅ Config loaded")

	return NewContainerWithConfig(cfg)
}

// NewContainerWithConfig builds the dependency graph from cfg
//
// QUAN TRỌNG: Thứ tự initialization:
// 1. Infrastructure (Redis) - phụ thuộc Config
// 2. Repositories - phụ thuộc Infrastructure
// 3. Gateway + Services - phụ thuộc Repositories
// 4. Handlers - phụ thuộc Services
func NewContainerWithConfig(cfg *config.Config) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{Config: cfg}

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	if err := c.initRepositories(); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := c.initServices(); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	c.initHandlers()

	log.Info().Msg("🎉 DI Container initialized successfully")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initInfrastructure() error {
	c.RateLimiter = middleware.NewIPRateLimiter(c.Config.RateLimit.RPS, c.Config.RateLimit.Burst)

	if c.Config.Callback.Store != config.CallbackStoreRedis {
		return nil
	}

	log.Info().Str("addr", c.Config.Redis.Host).Msg("🔴 Connecting to Redis...")
	rc := infraCache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Redis backs the callback store here, so it is not optional
	if err := rc.Connect(ctx); err != nil {
		_ = rc.Close()
		return err
	}

	c.redis = rc
	c.Cache = rc
	return nil
}

func (c *Container) initRepositories() error {
	switch c.Config.Callback.Store {
	case config.CallbackStoreRedis:
		if c.Cache == nil {
			return fmt.Errorf("redis callback store requires a cache")
		}
		c.CallbackStore = paymentRepo.NewRedisCallbackStore(c.Cache)
	default:
		memStore := paymentRepo.NewMemoryCallbackStore(c.Config.Callback.MaxEntries)
		if err := c.startSweeper(memStore); err != nil {
			return err
		}
		c.CallbackStore = memStore
	}

	log.Info().Str("store", c.Config.Callback.Store).Msg("✅ Callback store initialized")
	return nil
}

// startSweeper purges expired memory entries on a schedule. Redis expires
// keys on its own.
func (c *Container) startSweeper(store *paymentRepo.MemoryCallbackStore) error {
	schedule := c.Config.Callback.SweepSchedule
	if schedule == "" || schedule == "off" {
		return nil
	}

	sched := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := sched.AddFunc(schedule, func() {
		if n := store.PurgeExpired(); n > 0 {
			logger.Debug("Swept expired callback targets", map[string]interface{}{
				"purged":    n,
				"remaining": store.Len(),
			})
		}
	}); err != nil {
		return fmt.Errorf("invalid CALLBACK_SWEEP_SCHEDULE %q: %w", schedule, err)
	}

	sched.Start()
	c.Scheduler = sched
	log.Info().Str("schedule", schedule).Msg("⏰ Callback sweeper started")
	return nil
}

func (c *Container) initServices() error {
	vc := c.Config.VNPay

	vnpayConfig := vnpay.NewConfig(vc.TmnCode, vc.HashSecret, vc.APIURL, vc.ReturnURL, vc.IPNURL)
	vnpayConfig.SpaceAsPlus = vc.SpaceAsPlus
	vnpayConfig.IncludeHashType = vc.IncludeHashType
	vnpayConfig.SendIPNURL = vc.SendIPNURL
	vnpayConfig.ExpireAfter = vc.ExpireAfter
	if vc.Locale != "" {
		vnpayConfig.Locale = vc.Locale
	}

	client, err := vnpay.NewClient(vnpayConfig)
	if err != nil {
		return err
	}
	c.VNPayGateway = client

	log.Info().
		Str("tmn_code", vnpayConfig.TmnCode).
		Str("secret", vnpayConfig.MaskedSecret()).
		Str("pay_url", vnpayConfig.GetPaymentURL()).
		Bool("space_as_plus", vnpayConfig.SpaceAsPlus).
		Msg("✅ VNPay client initialized")

	c.PaymentService = paymentService.NewPaymentService(c.VNPayGateway, c.CallbackStore, paymentService.Options{
		CallbackTTL:        c.Config.Callback.TTL,
		DefaultRedirectURL: c.Config.Callback.RedirectURL,
	})
	c.TicketRenderer = ticketService.NewRenderer(c.Config.Ticket.QRSize)
	return nil
}

func (c *Container) initHandlers() {
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService)
	c.TicketHandler = ticketHandler.NewTicketHandler(c.TicketRenderer)
}

// Cleanup dọn dẹp resources khi shutdown
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up container resources...")

	if c.Scheduler != nil {
		<-c.Scheduler.Stop().Done()
		c.Scheduler = nil
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to close Redis")
		} else {
			log.Info().Msg("✅ Redis connections closed")
		}
		c.redis = nil
	}
}
