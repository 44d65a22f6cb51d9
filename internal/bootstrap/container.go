package bootstrap

import (
	"context"
	"fmt"

	"doc-review-be/internal/config"
	"doc-review-be/internal/constant"
	"doc-review-be/internal/controller"
	"doc-review-be/internal/handler"
	"doc-review-be/internal/pkg/logger"
	"doc-review-be/internal/pkg/mailer"
	"doc-review-be/internal/repository/memory"
	"doc-review-be/internal/repository/unitofwork"
	"doc-review-be/internal/service"
	"doc-review-be/internal/websocket"
	"doc-review-be/pkg/assistant/azure"
	"doc-review-be/pkg/events"
	pktNats "doc-review-be/pkg/nats"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/documents"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/review/usage"
	"doc-review-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	ReviewService    service.IReviewService
	ReviewController controller.IReviewController
	BoardHandler     *handler.BoardHandler

	// Background services, started by main.
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the review stack. db may be nil, in which case the
// report archive is disabled.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	catalog, err := criteria.Load(cfg.Review.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if cfg.Azure.Endpoint == "" || cfg.Azure.APIKey == "" {
		sysLogger.Warn("Bootstrap", "Azure OpenAI endpoint or key missing, assistant calls will fail", nil)
	}
	client := azure.NewClient(azure.Config{
		Endpoint:       cfg.Azure.Endpoint,
		APIKey:         cfg.Azure.APIKey,
		APIVersion:     cfg.Azure.APIVersion,
		RequestTimeout: cfg.Azure.RequestTimeout,
		MaxRetries:     uint(max(cfg.Azure.MaxRetries, 0)),
		InitialBackoff: cfg.Azure.InitialBackoff,
		MaxBackoff:     cfg.Azure.MaxBackoff,
	})

	gw := gateway.New(client, sysLogger,
		gateway.WithPollInterval(cfg.Review.PollInterval),
		gateway.WithRunTimeout(cfg.Review.RunTimeout),
	)

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	docs := documents.NewManager(client, gw, files, sysLogger, documents.Config{
		CorpusName:     cfg.Review.CorpusName,
		ChangeNotice:   constant.ArtifactChangedPrompt,
		Assistants:     cfg.Review.Assistants,
		DefaultPersona: constant.DefaultPersona,
	})

	// Redis fan-out is optional; a single instance delivers locally.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Redis unreachable, board updates stay local", map[string]interface{}{"error": err.Error()})
			_ = rdb.Close()
			rdb = nil
		} else {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	var eventPublisher events.Publisher = events.NopPublisher{}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// Archive pipeline: check-group results go over an in-process bus to the
	// consumer, which persists them.
	var (
		uowFactory unitofwork.RepositoryFactory
		publisher  service.IPublisherService
	)
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
		publisher = service.NewPublisherService(constant.TopicCheckGroupCompleted, pubSub)
		c.ConsumerService = service.NewConsumerService(pubSub, constant.TopicCheckGroupCompleted, uowFactory, sysLogger)
		c.closers = append(c.closers, func() { _ = pubSub.Close() })
	}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
		sysLogger,
	)

	reviewService := service.NewReviewService(
		memory.NewSessionRepository(cfg.Review.SessionTTL),
		catalog,
		gw,
		docs,
		publisher,
		eventPublisher,
		c.WebSocketHub,
		emailService,
		uowFactory,
		service.ReviewSettings{
			Rates: usage.Rates{
				InputPerMillion:  cfg.Review.InputCostPerMillion,
				OutputPerMillion: cfg.Review.OutputCostPerMillion,
			},
			Assistants: cfg.Review.Assistants,
			JWTSecret:  cfg.Auth.JWTSecret,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
		sysLogger,
	)

	c.ReviewService = reviewService
	c.ReviewController = controller.NewReviewController(reviewService, cfg.Auth.JWTSecret)
	c.BoardHandler = handler.NewBoardHandler(reviewService, c.WebSocketHub, cfg.Auth.JWTSecret, wsLogger)

	return c, nil
}

// Close releases broker connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
