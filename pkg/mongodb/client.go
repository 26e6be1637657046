package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
)

// ErrTransactionConflict is returned by RunTransaction when every attempt hit a
// transient write conflict.
var ErrTransactionConflict = errors.New("transaction conflict retries exhausted")

// Config describes the connection to the replica set. Multi-document
// transactions need a replica set, so ReplicaSet is usually set outside tests.
type Config struct {
	URI            string
	Database       string
	ReplicaSet     string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64

	// Credentials are applied when both Username and Password are set.
	Username string
	Password string
	AuthDB   string
}

// DefaultConfig points at a local mongod and the stock_ledger database.
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "stock_ledger",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    5,
	}
}

func (c *Config) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(c.ConnectTimeout).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize)
	if c.ReplicaSet != "" {
		opts.SetReplicaSet(c.ReplicaSet)
	}
	if c.Username != "" && c.Password != "" {
		opts.SetAuth(options.Credential{Username: c.Username, Password: c.Password, AuthSource: c.AuthDB})
	}
	return opts
}

// Client is a connected driver client bound to one database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient connects and fails unless the primary answers a ping within the
// connect timeout.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	client, err := mongo.Connect(ctx, config.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.Database, err)
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping primary: %w", err)
	}
	return &Client{client: client, database: client.Database(config.Database)}, nil
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// RunTransaction runs fn in a multi-document transaction on a fresh session.
// Attempts aborted with a TransientTransactionError label are re-run from the
// start, at most maxAttempts times, after which ErrTransactionConflict is
// returned. onRetry is called before each re-run and may be nil.
func RunTransaction(ctx context.Context, client *mongo.Client, maxAttempts int, fn func(sessCtx mongo.SessionContext) error, onRetry func(attempt int, err error)) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
			if err := session.StartTransaction(); err != nil {
				return err
			}
			if err := fn(sessCtx); err != nil {
				_ = session.AbortTransaction(context.Background())
				return err
			}
			return commitWithRetry(sessCtx, session)
		})
		if err == nil {
			return nil
		}
		if !HasErrorLabel(err, labelTransientTransaction) {
			return err
		}
		lastErr = err
		if attempt < maxAttempts && onRetry != nil {
			onRetry(attempt, err)
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrTransactionConflict, maxAttempts, lastErr)
}

func commitWithRetry(sessCtx mongo.SessionContext, session mongo.Session) error {
	for {
		err := session.CommitTransaction(sessCtx)
		if err == nil || !HasErrorLabel(err, labelUnknownCommitResult) {
			return err
		}
		if sessCtx.Err() != nil {
			return err
		}
	}
}

// HasErrorLabel reports whether err carries the given server error label.
func HasErrorLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel(label)
	}
	return false
}

// IsUnavailable reports whether err is a timeout or connectivity failure
// rather than a logical error returned by the server.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	return errors.Is(err, mongo.ErrClientDisconnected)
}
