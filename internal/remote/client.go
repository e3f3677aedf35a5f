// Package remote is the HTTP client for the dialogue store server.
//
// Responses are folded into the domain error kinds: 404 is NotFound, other
// 4xx are ValidationFailure (or the kind the server names in its error
// body), and 5xx, transport errors and an open circuit are NetworkFailure.
// Only NetworkFailure counts against the circuit breaker.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"dialoguetree/internal/codec"
	"dialoguetree/internal/domain"
)

// BreakerConfig tunes the circuit breaker around remote calls
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" toml:"max_requests"`
	Interval         time.Duration `yaml:"interval" toml:"interval"`
	Timeout          time.Duration `yaml:"timeout" toml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold" toml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests" toml:"min_requests"`
}

// DefaultBreakerConfig returns the breaker settings used when none are given
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

func (b BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if b.MaxRequests == 0 {
		b.MaxRequests = d.MaxRequests
	}
	if b.Interval == 0 {
		b.Interval = d.Interval
	}
	if b.Timeout == 0 {
		b.Timeout = d.Timeout
	}
	if b.FailureThreshold <= 0 {
		b.FailureThreshold = d.FailureThreshold
	}
	if b.MinRequests == 0 {
		b.MinRequests = d.MinRequests
	}
	return b
}

// Client talks to the remote store
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the store at baseURL
func New(baseURL string, timeout time.Duration, breaker BreakerConfig, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	breaker = breaker.withDefaults()
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.KindOf(err) != domain.KindNetwork
		},
	})
	return c
}

// ListNodes returns every node in the store
func (c *Client) ListNodes(ctx context.Context) ([]domain.Node, error) {
	var nodes []domain.Node
	err := c.do(ctx, "list nodes", http.MethodGet, "/api/nodes", nil, &nodes)
	return nodes, err
}

// CreateNode stores a new node under the id the editor assigned
func (c *Client) CreateNode(ctx context.Context, node domain.Node) (domain.Node, error) {
	var out domain.Node
	err := c.do(ctx, "create node", http.MethodPost, "/api/nodes", node, &out)
	return out, err
}

// UpdateNode applies a partial update
func (c *Client) UpdateNode(ctx context.Context, id int, patch domain.NodePatch) (domain.Node, error) {
	var out domain.Node
	err := c.do(ctx, "update node", http.MethodPut, fmt.Sprintf("/api/nodes/%d", id), patch, &out)
	return out, err
}

// DeleteNode removes a node. The server does not cascade.
func (c *Client) DeleteNode(ctx context.Context, id int) error {
	return c.do(ctx, "delete node", http.MethodDelete, fmt.Sprintf("/api/nodes/%d", id), nil, nil)
}

// ListConnections returns every connection in the store
func (c *Client) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	err := c.do(ctx, "list connections", http.MethodGet, "/api/connections", nil, &conns)
	return conns, err
}

// CreateConnection stores a connection under the id the editor assigned
func (c *Client) CreateConnection(ctx context.Context, conn domain.Connection) (domain.Connection, error) {
	var out domain.Connection
	err := c.do(ctx, "create connection", http.MethodPost, "/api/connections", conn, &out)
	return out, err
}

// DeleteConnection removes a connection
func (c *Client) DeleteConnection(ctx context.Context, id int) error {
	return c.do(ctx, "delete connection", http.MethodDelete, fmt.Sprintf("/api/connections/%d", id), nil, nil)
}

// ListGameElements returns the registry rows; the store keeps at most one
func (c *Client) ListGameElements(ctx context.Context) ([]domain.ElementsRecord, error) {
	var records []domain.ElementsRecord
	err := c.do(ctx, "list game elements", http.MethodGet, "/api/gameElements", nil, &records)
	return records, err
}

// CreateGameElements creates the registry row
func (c *Client) CreateGameElements(ctx context.Context, elements domain.GameElements) (domain.ElementsRecord, error) {
	var out domain.ElementsRecord
	err := c.do(ctx, "create game elements", http.MethodPost, "/api/gameElements", elements, &out)
	return out, err
}

// UpdateGameElements replaces the registry row
func (c *Client) UpdateGameElements(ctx context.Context, id int, elements domain.GameElements) (domain.ElementsRecord, error) {
	var out domain.ElementsRecord
	err := c.do(ctx, "update game elements", http.MethodPut, fmt.Sprintf("/api/gameElements/%d", id), elements, &out)
	return out, err
}

// Export downloads the whole store as a snapshot
func (c *Client) Export(ctx context.Context) (*domain.Snapshot, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "export", http.MethodGet, "/api/export", nil, &raw); err != nil {
		return nil, err
	}
	return codec.NewJSONCodec().Parse(bytes.NewReader(raw))
}

// Import replaces the whole store with doc
func (c *Client) Import(ctx context.Context, doc *domain.Snapshot) error {
	return c.do(ctx, "import", http.MethodPost, "/api/import", doc, nil)
}

// errorBody mirrors the server's error response
type errorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	requestID := uuid.NewString()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, op, method, path, requestID, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = domain.Wrap(domain.KindNetwork, op, err)
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		c.logger.Warn("remote call failed", append(fields, zap.Error(err))...)
		return err
	}
	c.logger.Debug("remote call", fields...)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path, requestID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.Wrap(domain.KindValidation, op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.Wrap(domain.KindNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Wrap(domain.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.Wrap(domain.KindParse, op, err)
		}
		return nil
	}

	return statusError(op, resp)
}

// statusError maps a failed response onto a domain error
func statusError(op string, resp *http.Response) error {
	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &eb)

	msg := eb.Error
	if eb.Details != "" {
		msg += ": " + eb.Details
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	kind := domain.KindNetwork
	switch {
	case resp.StatusCode == http.StatusNotFound:
		kind = domain.KindNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = domain.KindValidation
		switch domain.ErrorKind(eb.Kind) {
		case domain.KindInvalidEdge, domain.KindParse, domain.KindNotFound:
			kind = domain.ErrorKind(eb.Kind)
		}
	}
	return domain.Errorf(kind, op, "%s (status %d)", msg, resp.StatusCode)
}
