//go:build integration

// Package integration runs the storage and quota adapters against real servers started with
// testcontainers. Run with: go test -tags integration ./internal/integration/...
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	mongorepo "github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/mongo"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host + ":" + p.Port()
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}, "5432")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, "postgres://postgres:postgres@"+addr+"/app?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	return pool
}

func startMongo(t *testing.T) *mongodrv.Database {
	t.Helper()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
	}, "27017")

	ctx := context.Background()
	client, db, err := mongorepo.Connect(ctx, "mongodb://"+addr, "coach_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, mongorepo.EnsureIndexes(ctx, db))
	return db
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.Eventually(t, func() bool { return rdb.Ping(context.Background()).Err() == nil }, 30*time.Second, time.Second)
	return rdb
}
