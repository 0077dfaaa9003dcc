package mongo

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/world-in-progress/docrepo/config"
	"github.com/world-in-progress/docrepo/core/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	Client   *mongo.Client
	Database *mongo.Database
	Config   config.MongoConfig
}

var (
	instance *Client
	once     sync.Once
)

// GetMongoClient gets the process wide client, connecting on first use.
func GetMongoClient() *Client {
	once.Do(func() {
		cfg := config.LoadMongoConfig()
		client, err := Connect(context.Background(), cfg)
		if err != nil {
			logger.Fatal("MongoDB connection failed: %v", err)
		}
		instance = client
	})

	return instance
}

// Connect dials the server described by cfg and pings it, retrying with
// exponential backoff for at most cfg.ConnectRetry. A zero Timeout or
// ConnectRetry falls back to DefaultMongoConfig.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	cfg = withConnectDefaults(cfg)
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetWriteConcern(WriteConcern(cfg.WriteConcern, cfg.Journal))

	var client *mongo.Client

	// exponential backoff retry connection
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = cfg.ConnectRetry
	err := backoff.Retry(func() error {
		var err error
		if client == nil {
			client, err = mongo.Connect(ctx, clientOptions)
			if err != nil {
				logger.Warn("Failed to connect MongoDB: %v", err)
				return err
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err = client.Ping(pingCtx, nil); err != nil {
			logger.Warn("Failed to ping MongoDB at %s: %v", cfg.RedactedURI(), err)
		}
		return err
	}, backoff.WithContext(retry, ctx))

	if err != nil {
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		return nil, err
	}

	logger.Info("MongoDB connection successful: %s", cfg.RedactedURI())
	return &Client{
		Client:   client,
		Database: client.Database(cfg.Database),
		Config:   cfg,
	}, nil
}

// withConnectDefaults fills the bounds a zero MongoConfig leaves open: a zero
// ping timeout fails every attempt and a zero retry window never ends.
func withConnectDefaults(cfg config.MongoConfig) config.MongoConfig {
	def := config.DefaultMongoConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ConnectRetry <= 0 {
		cfg.ConnectRetry = def.ConnectRetry
	}
	return cfg
}

func (m *Client) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection: %v", err)
		return err
	}
	return nil
}
