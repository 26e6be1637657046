package testing

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// EnvMongoURI points integration tests at an existing replica set instead of a container.
const EnvMongoURI = "TEST_MONGODB_URI"

const (
	mongoImage     = "mongo:6"
	replicaSetName = "rs0"
)

// MongoReplicaSet is a single-node replica set for integration tests. The
// container is nil when EnvMongoURI supplied the URI.
type MongoReplicaSet struct {
	URI       string
	container *mongodb.MongoDBContainer
}

// StartMongo starts a replica set container unless EnvMongoURI is set.
func StartMongo(ctx context.Context) (*MongoReplicaSet, error) {
	if uri := os.Getenv(EnvMongoURI); uri != "" {
		return &MongoReplicaSet{URI: uri}, nil
	}

	c, err := mongodb.Run(ctx, mongoImage, mongodb.WithReplicaSet(replicaSetName))
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", mongoImage, err)
	}
	uri, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("container uri: %w", err)
	}
	return &MongoReplicaSet{URI: uri, container: c}, nil
}

// Connect returns a client whose primary has answered a ping.
func (r *MongoReplicaSet) Connect(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(r.URI))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping %s: %w", r.URI, err)
	}
	return client, nil
}

// Close terminates the container, if one was started.
func (r *MongoReplicaSet) Close(ctx context.Context) error {
	if r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}
