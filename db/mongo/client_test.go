package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/world-in-progress/docrepo/config"
)

func TestConnectGivesUp(t *testing.T) {
	cfg := config.DefaultMongoConfig()
	cfg.URI = "postgres://localhost:5432"
	cfg.ConnectRetry = 100 * time.Millisecond

	start := time.Now()
	client, err := Connect(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectDefaults(t *testing.T) {
	def := config.DefaultMongoConfig()

	cfg := withConnectDefaults(config.MongoConfig{URI: "mongodb://db:27017"})
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.Equal(t, def.ConnectRetry, cfg.ConnectRetry)
	assert.Equal(t, "mongodb://db:27017", cfg.URI)

	cfg = withConnectDefaults(config.MongoConfig{Timeout: time.Second, ConnectRetry: 2 * time.Second})
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.ConnectRetry)
}

func TestConnectZeroConfigCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	client, err := Connect(ctx, config.MongoConfig{URI: "postgres://localhost:5432"})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestCloseWithoutClient(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, (&Client{}).Close(context.Background()))
}
