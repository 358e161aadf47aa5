package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"antigravity2api-go/internal/models"
)

const mongoPoolDocID = "pool"

// MongoStore keeps the pool as a single document and history as one
// document per record, pruned past the retention limit.
type MongoStore struct {
	client  *mongo.Client
	pool    *mongo.Collection
	history *mongo.Collection
}

// NewMongoStore connects, pings, and binds the collections. The database
// name comes from the URI path, defaulting to "antigravity".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	connCtx, cancel := withOpTimeout(ctx)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(10)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(connCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("storage: connect mongodb: %w", err)
	}
	if err := client.Ping(connCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("storage: ping mongodb: %w", err)
	}

	db := client.Database(mongoDatabaseName(uri))
	return &MongoStore{
		client:  client,
		pool:    db.Collection("account_pool"),
		history: db.Collection("request_history"),
	}, nil
}

func mongoDatabaseName(uri string) string {
	if u, err := url.Parse(uri); err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return "antigravity"
}

func (m *MongoStore) LoadAccounts(ctx context.Context) ([]*models.Account, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var doc struct {
		Accounts string `bson:"accounts"`
	}
	err := m.pool.FindOne(ctx, bson.M{"_id": mongoPoolDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: mongodb load accounts: %w", err)
	}
	var accounts []*models.Account
	if err := json.Unmarshal([]byte(doc.Accounts), &accounts); err != nil {
		return nil, fmt.Errorf("storage: parse accounts blob: %w", err)
	}
	return accounts, nil
}

func (m *MongoStore) SaveAccounts(ctx context.Context, accounts []*models.Account) error {
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("storage: encode accounts: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	doc := bson.M{
		"_id":        mongoPoolDocID,
		"accounts":   string(data),
		"updated_at": time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.pool.ReplaceOne(ctx, bson.M{"_id": mongoPoolDocID}, doc, opts); err != nil {
		return fmt.Errorf("storage: mongodb save accounts: %w", err)
	}
	return nil
}

func (m *MongoStore) AppendHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode history record: %w", err)
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if _, err := m.history.InsertOne(ctx, bson.M{
		"record":     string(data),
		"created_at": time.Now(),
	}); err != nil {
		return fmt.Errorf("storage: mongodb append history: %w", err)
	}
	return m.pruneHistory(ctx)
}

// pruneHistory deletes everything older than the newest retention-limit
// records. ObjectIDs grow with insertion time, so _id order is age order.
func (m *MongoStore) pruneHistory(ctx context.Context) error {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(models.DefaultHistoryLimit)).
		SetProjection(bson.M{"_id": 1})

	var cutoff struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := m.history.FindOne(ctx, bson.M{}, opts).Decode(&cutoff)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: mongodb history cutoff: %w", err)
	}
	if _, err := m.history.DeleteMany(ctx, bson.M{"_id": bson.M{"$lte": cutoff.ID}}); err != nil {
		return fmt.Errorf("storage: mongodb prune history: %w", err)
	}
	return nil
}

func (m *MongoStore) ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 || limit > models.DefaultHistoryLimit {
		limit = models.DefaultHistoryLimit
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := m.history.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongodb list history: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*models.HistoryRecord
	for cursor.Next(ctx) {
		var doc struct {
			Record string `bson:"record"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		rec := &models.HistoryRecord{}
		if err := json.Unmarshal([]byte(doc.Record), rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("storage: mongodb history cursor: %w", err)
	}
	return out, nil
}

func (m *MongoStore) Health(ctx context.Context) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
