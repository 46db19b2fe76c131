// Package container builds the application's shared components once at startup.
package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-book-tracker/config"
	"github.com/oksasatya/go-book-tracker/internal/domain/repository"
	"github.com/oksasatya/go-book-tracker/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-book-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-book-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-book-tracker/internal/infrastructure/search"
	"github.com/oksasatya/go-book-tracker/pkg/helpers"
	"github.com/oksasatya/go-book-tracker/pkg/imageproc"
	"github.com/oksasatya/go-book-tracker/pkg/mailer"
	"github.com/oksasatya/go-book-tracker/pkg/token"
)

// Container holds every long-lived dependency. Optional clients are nil when not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	Rabbit *helpers.RabbitPublisher

	JWT     *helpers.JWTManager
	Cookies *helpers.Manager
	Tokens  *token.Service

	Users    repository.UserRepository
	Books    repository.BookRepository
	Sessions repository.SessionStore

	CoverStore imageproc.Store
	Covers     *imageproc.Processor
	BookIndex  *search.BookIndex

	MailQueue mailer.Queue
	MailPool  *mailer.Pool
	Notifier  *mailer.Notifier
}

// New connects to the configured backends. On error the partially built container is closed.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (c *Container, err error) {
	c = &Container{
		Config:  cfg,
		Logger:  logger,
		JWT:     helpers.NewJWTManager(cfg.SecretKey, cfg.SessionTTL),
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Tokens:  token.NewService(cfg.SecretKey),
	}
	defer func() {
		if err != nil {
			c.Close(context.Background())
			c = nil
		}
	}()

	if err = c.initStorage(ctx); err != nil {
		return c, err
	}
	if err = c.initCovers(ctx); err != nil {
		return c, err
	}
	c.initSearch(ctx)
	if err = c.initMail(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config
	switch cfg.StorageDriver {
	case "memory":
		c.Logger.Warn("using in-memory storage, data is lost on restart")
		c.Users = memory.NewUserRepository()
		c.Books = memory.NewBookRepository()
		c.Sessions = memory.NewSessionStore()
		return nil
	case "postgres", "":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if err := pginfra.Migrate(cfg.PostgresDSN(), c.Logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		AppName:     cfg.AppName,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	c.PGPool = pool
	c.Users = pginfra.NewUserRepository(pool)
	c.Books = pginfra.NewBookRepository(pool)

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := helpers.PingRedis(ctx, c.Redis); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	c.Sessions = redisstore.NewSessionStore(c.Redis)
	return nil
}

func (c *Container) initCovers(ctx context.Context) error {
	cfg := c.Config
	switch cfg.CoverStorage {
	case "gcs":
		if cfg.GCSBucket == "" {
			return fmt.Errorf("COVER_STORAGE=gcs requires GCS_BUCKET")
		}
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsFile)
		if err != nil {
			return fmt.Errorf("gcs client: %w", err)
		}
		c.GCS = client
		c.CoverStore = imageproc.NewGCSStore(client, cfg.GCSBucket, cfg.GCSPrefix)
	case "local", "":
		store, err := imageproc.NewLocalStore(cfg.UploadDir, "/static/covers")
		if err != nil {
			return fmt.Errorf("upload dir: %w", err)
		}
		c.CoverStore = store
	default:
		return fmt.Errorf("unknown COVER_STORAGE %q", cfg.CoverStorage)
	}
	c.Covers = imageproc.NewProcessor(c.CoverStore, c.Logger).WithMaxPixels(cfg.MaxImagePixels)
	return nil
}

// initSearch enables the Elasticsearch index when addresses are configured.
// Any failure leaves search on the database.
func (c *Container) initSearch(ctx context.Context) {
	cfg := c.Config
	addrs := cfg.ESAddrs()
	if len(addrs) == 0 {
		return
	}
	es, err := helpers.NewESClient(helpers.ESOptions{
		Addrs:    addrs,
		Username: cfg.ElasticsearchUser,
		Password: cfg.ElasticsearchPass,
		Timeout:  cfg.ElasticsearchTimeout,
	})
	if err != nil {
		c.Logger.WithError(err).Warn("elasticsearch client init failed, search uses the database")
		return
	}
	idx := search.NewBookIndex(es, cfg.ESBooksIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		c.Logger.WithError(err).Warn("elasticsearch index unavailable, search uses the database")
		return
	}
	c.ES = es
	c.BookIndex = idx
}

func (c *Container) initMail() error {
	cfg := c.Config
	switch {
	case !cfg.MailSendEnabled:
		c.MailQueue = mailer.Discard{Logger: c.Logger}
	case cfg.MailQueue == "rabbitmq":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		c.Rabbit = pub
		c.MailQueue = mailer.NewRabbitQueue(pub, NewSender(cfg))
	default:
		c.MailPool = mailer.NewPool(NewSender(cfg), c.Logger, mailer.PoolOptions{
			Workers:     cfg.MailWorkers,
			Size:        cfg.MailQueueSize,
			SendTimeout: cfg.MailSendTimeout,
			Registerer:  prometheus.DefaultRegisterer,
		})
		c.MailQueue = c.MailPool
	}
	c.Notifier = mailer.NewNotifier(c.MailQueue, mailer.NotifierConfig{
		AppName:    cfg.AppName,
		BaseURL:    cfg.AppBaseURL,
		ConfirmTTL: cfg.ConfirmTokenTTL,
		ResetTTL:   cfg.ResetTokenTTL,
	})
	return nil
}

// NewSender picks the delivery transport named by MAIL_TRANSPORT.
func NewSender(cfg *config.Config) mailer.Sender {
	if cfg.MailTransport == "mailgun" {
		return mailer.NewMailgun(mailer.MailgunConfig{
			Domain:  cfg.MailgunDomain,
			APIKey:  cfg.MailgunAPIKey,
			Sender:  cfg.MailgunSender,
			APIBase: cfg.MailgunAPIBase,
		})
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		From:     cfg.MailDefaultSender,
		UseTLS:   cfg.MailUseTLS,
		UseSSL:   cfg.MailUseSSL,
	})
}

// Close drains the mail pool and releases every client, in reverse order of creation.
func (c *Container) Close(ctx context.Context) {
	if c.MailPool != nil {
		wait, cancel := context.WithTimeout(ctx, c.Config.MailShutdownWait)
		if err := c.MailPool.Close(wait); err != nil {
			c.Logger.WithError(err).Warn("mail pool did not drain in time")
		}
		cancel()
	}
	c.Rabbit.Close()
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
