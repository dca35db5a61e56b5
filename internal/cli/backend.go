package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/adapters/process"
	redisAdapter "github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/adapters/sqlite"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/redis/go-redis/v9"
)

// Environment variables read by the CLI.
const (
	EnvEncryptionKey          = "STEPWISE_ENCRYPTION_KEY"
	EnvEncryptionFallbackKeys = "STEPWISE_ENCRYPTION_FALLBACK_KEYS"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Sink kinds. A process sink is selected with "process:<name>".
const (
	SinkStdout  = "stdout"
	SinkMemory  = "memory"
	SinkRedis   = "redis"
	SinkSQLite  = "sqlite"
	SinkNone    = "none"
	sinkProcess = "process:"
)

// BackendOptions selects where flow state and submitted answers go.
type BackendOptions struct {
	Store       string
	StoreDir    string
	RedisURL    string
	SQLitePath  string
	Sink        string
	SinksConfig string
	// Redact lists step ID patterns whose free-text answers are masked before storage.
	Redact []string
	// Output receives the stdout sink's submissions. Defaults to os.Stdout.
	Output io.Writer
}

// Backend holds the opened store, sink and optional distributed locker.
type Backend struct {
	Store  ports.StateStore
	Sink   ports.AnswerSink
	Locker ports.DistributedLocker

	closers []io.Closer
}

// Close releases every connection opened by OpenBackend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackend opens the configured store and sink for the named flow.
// Redis and SQLite connections are shared when both sides use them.
// The store is wrapped with redaction and, when STEPWISE_ENCRYPTION_KEY is
// set, envelope encryption.
func OpenBackend(ctx context.Context, opts BackendOptions, flowName string) (*Backend, error) {
	b := &Backend{}
	var (
		rdb *redis.Client
		db  *sqlite.DB
	)

	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		if opts.RedisURL == "" {
			return nil, errors.New("redis backend requires --redis-url")
		}
		parsed, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb = redis.NewClient(parsed)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			rdb = nil
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		b.closers = append(b.closers, rdb)
		return rdb, nil
	}
	sqliteDB := func() (*sqlite.DB, error) {
		if db != nil {
			return db, nil
		}
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(".stepwise", "stepwise.db")
		}
		var err error
		db, err = sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db)
		return db, nil
	}

	fail := func(err error) (*Backend, error) {
		_ = b.Close()
		return nil, err
	}

	var store ports.StateStore
	switch strings.ToLower(opts.Store) {
	case "", StoreFile:
		store = file.New(opts.StoreDir)
	case StoreMemory:
		store = memory.NewStore()
	case StoreRedis:
		client, err := redisClient()
		if err != nil {
			return fail(err)
		}
		store = redisAdapter.NewFromClient(client)
		b.Locker = redisAdapter.NewLocker(client, "stepwise:lock:")
	case StoreSQLite:
		d, err := sqliteDB()
		if err != nil {
			return fail(err)
		}
		store = d.Store()
	default:
		return fail(fmt.Errorf("unknown store %q (use file, memory, redis or sqlite)", opts.Store))
	}

	mws := []middleware.Middleware{}
	if len(opts.Redact) > 0 {
		for _, p := range opts.Redact {
			if _, err := regexp.Compile(p); err != nil {
				return fail(fmt.Errorf("invalid redact pattern %q: %w", p, err))
			}
		}
		mws = append(mws, middleware.NewRedactMiddleware(opts.Redact))
	}
	enc, err := EncryptionFromEnv()
	if err != nil {
		return fail(err)
	}
	if enc != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(*enc))
	}
	b.Store = middleware.Chain(store, mws...)

	sink := strings.TrimSpace(opts.Sink)
	switch {
	case sink == "" || sink == SinkStdout:
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		b.Sink = NewWriterSink(out)
	case sink == SinkNone:
	case sink == SinkMemory:
		b.Sink = memory.NewSink()
	case sink == SinkRedis:
		client, err := redisClient()
		if err != nil {
			return fail(err)
		}
		b.Sink = redisAdapter.NewSink(client)
	case sink == SinkSQLite:
		d, err := sqliteDB()
		if err != nil {
			return fail(err)
		}
		b.Sink = d.Sink(flowName)
	case strings.HasPrefix(sink, sinkProcess):
		name := strings.TrimPrefix(sink, sinkProcess)
		commands, err := process.LoadCommands(opts.SinksConfig)
		if err != nil {
			return fail(err)
		}
		if _, ok := commands[name]; !ok {
			return fail(fmt.Errorf("sink command %q is not declared in %s", name, opts.SinksConfig))
		}
		b.Sink = process.NewSink(name,
			process.WithRegistry(commands),
			process.WithBaseDir(filepath.Dir(opts.SinksConfig)),
		)
	default:
		return fail(fmt.Errorf("unknown sink %q (use stdout, memory, redis, sqlite, none or process:<name>)", opts.Sink))
	}

	return b, nil
}

// EncryptionFromEnv reads the AES-256 keys from the environment.
// Keys are base64 encoded; it returns nil when no active key is set.
func EncryptionFromEnv() (*middleware.EncryptionConfig, error) {
	raw := strings.TrimSpace(os.Getenv(EnvEncryptionKey))
	if raw == "" {
		return nil, nil
	}
	active, err := decodeKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvEncryptionKey, err)
	}
	cfg := &middleware.EncryptionConfig{ActiveKey: active}

	for _, k := range strings.Split(os.Getenv(EnvEncryptionFallbackKeys), ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key, err := decodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvEncryptionFallbackKeys, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
