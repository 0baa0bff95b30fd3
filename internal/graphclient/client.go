// Package graphclient implements the three operations spec.md section
// 4.6 names for the GraphClient: execute_single, execute_batched (the
// apoc.periodic.iterate-style batched iteration primitive, realized
// here as a client-driven loop with one transaction per batch), and
// ping. Retries follow the teacher's exponential-backoff loop in
// internal/platform/openai/client.go, adapted to Neo4j's transient-
// error classification instead of HTTP status codes.
package graphclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jdb "github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/neo4jdb"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

// RetryConfig controls the exponential backoff applied to transient
// Graph errors (spec.md section 7).
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 30 * time.Second}
}

// BatchResult is the outcome of ExecuteBatched: how many of the
// payload's batches committed vs failed, and their errors, matching
// spec.md's {committed, failed, errors[]} contract.
type BatchResult struct {
	Committed int
	Failed    int
	Errors    []error
}

type Client struct {
	db    *neo4jdb.Client
	log   *logger.Logger
	retry RetryConfig
}

func New(db *neo4jdb.Client, log *logger.Logger) *Client {
	return &Client{db: db, log: log, retry: DefaultRetryConfig()}
}

func (c *Client) WithRetryConfig(rc RetryConfig) *Client {
	c.retry = rc
	return c
}

// Ping verifies connectivity only. It does not probe for any server-side
// procedure; ExecuteBatched batches on the client and needs none.
func (c *Client) Ping(ctx context.Context) error {
	return c.withRetry(ctx, func() error { return c.db.Ping(ctx) })
}

// ExecuteSingle runs cypher in one write transaction and returns its
// summary counters.
func (c *Client) ExecuteSingle(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultSummary, error) {
	var summary neo4j.ResultSummary
	err := c.withRetry(ctx, func() error {
		session := c.db.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.db.Database})
		defer session.Close(ctx)

		res, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return classify(err)
		}
		summary = res.(neo4j.ResultSummary)
		return nil
	})
	return summary, err
}

// Query runs cypher in one read transaction and returns its result
// rows as maps, for the small lookups the delta strategy needs
// (reading UmlsMeta.version, enumerating stale-sweep candidates).
func (c *Client) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	var rows []map[string]any
	err := c.withRetry(ctx, func() error {
		session := c.db.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.db.Database})
		defer session.Close(ctx)

		res, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(records))
			for _, rec := range records {
				out = append(out, rec.AsMap())
			}
			return out, nil
		})
		if err != nil {
			return classify(err)
		}
		rows = res.([]map[string]any)
		return nil
	})
	return rows, err
}

// ExecuteBatched implements the batched iteration primitive from
// spec.md section 4.6 as a client-driven loop: payload is split into
// batches of batchSize, each batch runs "UNWIND $rows AS row" followed
// by innerMutation (a Cypher fragment that references the bound
// variable "row") in its own transaction, and a
// failing batch is reported but does not abort the remaining batches
// (failure isolation per spec.md section 5).
func (c *Client) ExecuteBatched(ctx context.Context, innerMutation string, payload []map[string]any, batchSize int) (BatchResult, error) {
	return c.ExecuteBatchedWithParams(ctx, innerMutation, payload, batchSize, nil)
}

// ExecuteBatchedWithParams is ExecuteBatched with additional static
// parameters (e.g. the sync version tag) merged into every batch's
// transaction alongside $rows.
func (c *Client) ExecuteBatchedWithParams(ctx context.Context, innerMutation string, payload []map[string]any, batchSize int, extraParams map[string]any) (BatchResult, error) {
	if batchSize <= 0 {
		batchSize = 10000
	}
	var result BatchResult
	cypher := fmt.Sprintf("UNWIND $rows AS row\n%s", innerMutation)

	for start := 0; start < len(payload); start += batchSize {
		if ctx.Err() != nil {
			return result, syncerr.New(syncerr.Cancellation, "execute_batched cancelled", ctx.Err())
		}
		end := start + batchSize
		if end > len(payload) {
			end = len(payload)
		}
		batch := payload[start:end]

		params := map[string]any{"rows": batch}
		for k, v := range extraParams {
			params[k] = v
		}

		err := c.withRetry(ctx, func() error {
			session := c.db.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.db.Database})
			defer session.Close(ctx)
			_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				res, err := tx.Run(ctx, cypher, params)
				if err != nil {
					return nil, err
				}
				return res.Consume(ctx)
			})
			return classify(err)
		})

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			if c.log != nil {
				c.log.Error("batch failed", "batch_start", start, "batch_size", len(batch), "error", err)
			}
			continue
		}
		result.Committed++
	}
	return result, nil
}

// classify turns a raw driver error into a permanent syncerr
// (constraint/syntax — do not retry) or leaves it as-is so
// withRetry's transient handling applies. Neo4j error codes follow
// "Neo.<Classification>.<Category>.<Title>"; only TransientError is
// retried, every other Neo4j classification (ClientError,
// DatabaseError) is permanent. Non-Neo4j errors are returned as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		parts := strings.SplitN(neo4jErr.Code, ".", 3)
		if len(parts) >= 2 && parts[1] == "TransientError" {
			return err
		}
		return syncerr.New(syncerr.GraphPermanent, neo4jErr.Code, err)
	}
	return err
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	delay := c.retry.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return syncerr.New(syncerr.Cancellation, "graph operation cancelled", ctx.Err())
		}
		err := fn()
		if err == nil {
			return nil
		}
		var se *syncerr.Error
		if errors.As(err, &se) && se.Kind == syncerr.GraphPermanent {
			return err
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}
		if c.log != nil {
			c.log.Warn("retrying transient graph error", "attempt", attempt+1, "max_attempts", maxAttempts, "delay", delay.String(), "error", err)
		}
		select {
		case <-ctx.Done():
			return syncerr.New(syncerr.Cancellation, "graph operation cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.retry.MaxDelay && c.retry.MaxDelay > 0 {
			delay = c.retry.MaxDelay
		}
	}
	return syncerr.New(syncerr.GraphTransient, "graph operation failed after retries", lastErr)
}
