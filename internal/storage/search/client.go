// Package search is the search index gateway. Incidents are projected into
// Redis hashes and queried through a RediSearch index.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/rueidis"
)

const (
	DefaultIndex = "incidents"
	DefaultLimit = 1000
	KeyPrefix    = "incident:"
)

// Command names used as error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpSearch      = "FT.SEARCH"
	OpIndex       = "HSET"
	OpDel         = "DEL"
	OpPing        = "PING"
)

type Config struct {
	Addrs    []string
	Username string
	Password string
	Index    string
	// Limit caps the number of hits returned by one search.
	Limit int
}

type Store struct {
	client rueidis.Client
	index  string
	limit  int
	logger *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("search: addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		// FT.SEARCH replies are parsed as RESP2 arrays
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}

	return newStore(client, cfg, logger), nil
}

// NewStoreForTest wraps an existing client, typically a rueidis mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStore(c rueidis.Client, cfg Config, logger *slog.Logger) *Store {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Store{client: c, index: cfg.Index, limit: cfg.Limit, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	cmd := s.b().Ping().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%s: %w", OpPing, err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

func documentKey(id string) string {
	return KeyPrefix + id
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
