package database

import (
	"context"
	"fmt"
	"time"

	"lemonade/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Connections holds every backing service of the API.
type Connections struct {
	Scylla  *gocql.Session
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// Connect opens all connections. Scylla and Redis are required; search
// and image storage only log when unavailable and stay nil.
func Connect(ctx context.Context, cfg config.Server, logger *zap.Logger) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conns := &Connections{}
	var err error

	// 1. ScyllaDB
	if conns.Scylla, err = ConnectScylla(cfg.Scylla, logger); err != nil {
		return nil, err
	}

	// 2. Redis
	if conns.Redis, err = ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		conns.Close()
		return nil, err
	}
	logger.Info("✅ connected to Redis", zap.String("addr", cfg.RedisAddr))

	// 3. Elasticsearch
	if conns.Elastic, err = connectElastic(cfg); err != nil {
		logger.Warn("⚠️ Elasticsearch unavailable, search falls back to the catalog", zap.Error(err))
	} else {
		logger.Info("✅ connected to Elasticsearch")
	}

	// 4. MinIO
	if conns.MinIO, err = connectMinIO(ctx, cfg.Minio, logger); err != nil {
		logger.Warn("⚠️ MinIO unavailable, image uploads disabled", zap.Error(err))
	}

	logger.Info("✅ all databases connected")
	return conns, nil
}

func (c *Connections) Close() error {
	var err error
	if c.Scylla != nil {
		c.Scylla.Close()
	}
	if c.Redis != nil {
		err = multierr.Append(err, c.Redis.Close())
	}
	return err
}

// =============================================
// SCYLLA DB
// =============================================

// ConnectScylla creates the keyspace and tables if needed, then opens a
// session on the keyspace.
func ConnectScylla(cfg config.Scylla, logger *zap.Logger) (*gocql.Session, error) {
	bootstrap := newCluster(cfg)
	bootstrap.Keyspace = ""
	admin, err := bootstrap.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla: connect: %w", err)
	}
	err = admin.Query(fmt.Sprintf(createKeyspace, cfg.Keyspace)).Exec()
	admin.Close()
	if err != nil {
		return nil, fmt.Errorf("scylla: create keyspace %s: %w", cfg.Keyspace, err)
	}

	session, err := newCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla: open keyspace %s: %w", cfg.Keyspace, err)
	}
	if err := EnsureSchema(session); err != nil {
		session.Close()
		return nil, err
	}

	logger.Info("✅ ScyllaDB session ready", zap.String("keyspace", cfg.Keyspace), zap.Strings("hosts", cfg.Hosts))
	return session, nil
}

func newCluster(cfg config.Scylla) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// EnsureSchema creates the tables the repositories use.
func EnsureSchema(session *gocql.Session) error {
	for _, stmt := range schema {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("scylla: schema: %w", err)
		}
	}
	return nil
}

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(cfg config.Server) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, err
	}
	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: %s", res.Status())
	}
	return client, nil
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg config.Minio, logger *zap.Logger) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		logger.Info("🪣 bucket created", zap.String("bucket", cfg.Bucket))
	}
	logger.Info("✅ connected to MinIO", zap.String("endpoint", cfg.Endpoint))
	return client, nil
}
