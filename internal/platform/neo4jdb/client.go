// Package neo4jdb wraps the Neo4j Go driver's session/transaction
// lifecycle the way the teacher's internal/platform/neo4jdb package
// does, adapted here to build its driver from this module's Config
// instead of raw os.Getenv calls.
package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/config"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.Neo4jMaxPoolSize
		c.SocketConnectTimeout = time.Duration(cfg.Neo4jTimeoutSeconds) * time.Second
	})
	if err != nil {
		return nil, syncerr.New(syncerr.GraphPermanent, "init neo4j driver", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Neo4jTimeoutSeconds)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, syncerr.New(syncerr.GraphTransient, "verify neo4j connectivity", err)
	}

	return &Client{Driver: driver, Database: cfg.Neo4jDatabase, log: log}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Ping verifies connectivity, matching the GraphClient.ping() contract
// from spec.md section 4.6.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return fmt.Errorf("neo4jdb: client not initialized")
	}
	return c.Driver.VerifyConnectivity(ctx)
}
