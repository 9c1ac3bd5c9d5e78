package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/database"
	"github.com/weiwangfds/structview/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore 基于MongoDB集合的账本
// 每次追加是一次独立的原子插入，id 上的唯一索引保证不重复
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo 连接MongoDB并确保索引存在，返回的账本拥有该连接
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Infof("Connecting to MongoDB (database: %s, collection: %s)", cfg.Database, cfg.Collection)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, unavailable("connect mongo", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable("ping mongo", err)
	}

	s := NewMongoStore(client.Database(cfg.Database).Collection(cfg.Collection))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewMongoStore 使用已有集合创建账本，连接由调用方管理
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes 创建 id 唯一索引和 timestamp 倒序索引
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_id"),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_timestamp"),
		},
	})
	if err != nil {
		return unavailable("create mongo indexes", err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, item *database.HistoryItem) error {
	if _, err := s.coll.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return unavailable("insert history item", err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]database.HistoryItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, unavailable("find history items", err)
	}
	defer cursor.Close(ctx)

	items := []database.HistoryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, unavailable("decode history items", err)
	}
	return items, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*database.HistoryItem, error) {
	var item database.HistoryItem
	err := s.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find history item", err)
	}
	return &item, nil
}

func (s *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Close 仅断开由 OpenMongo 建立的连接
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("ledger: disconnect mongo: %w", err)
	}
	return nil
}
