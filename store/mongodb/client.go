// Package mongodb owns the MongoDB client used by the repository implementations.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/taskhub-server/internal/config"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names
const (
	UsersCollection    = "users"
	RolesCollection    = "roles"
	SessionsCollection = "sessions"
	SettingsCollection = "settings"
)

type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the configured server and pings the primary before returning.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.GetMongoURI()).
		SetTimeout(cfg.GetMongoTimeout())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("[mongodb.Connect] connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetMongoTimeout())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("[mongodb.Connect] ping: %w", err)
	}

	log.Info().Str("database", cfg.GetMongoDatabase()).Msg("connected to mongodb")
	return &Client{
		client: client,
		db:     client.Database(cfg.GetMongoDatabase()),
	}, nil
}

func (c *Client) Database() *mongo.Database {
	return c.db
}

// Ping checks the primary is reachable, used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// IsNotFound reports whether err is the driver's no-documents error.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
