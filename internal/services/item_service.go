package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utf4/dbay/internal/config"
	"github.com/utf4/dbay/internal/db"
	"github.com/utf4/dbay/internal/models"
)

// IItemService defines the interface for item and listing persistence.
type IItemService interface {
	FindAll(ctx context.Context) ([]models.Item, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	Create(ctx context.Context, item *models.Item) (primitive.ObjectID, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.UpdateAck, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error)
}

const itemsCollection = "items"

// Fields settable via UpdateByID. Publisher identity, wallet address and the
// published date are captured at creation time and stay immutable; anything
// else in the partial is dropped.
var updatableItemFields = map[string]bool{
	"name":           true,
	"brand":          true,
	"model":          true,
	"description":    true,
	"original_price": true,
	"sale_price":     true,
	"vendor_link":    true,
	"condition":      true,
	"image":          true,
	"price":          true,
}

// itemService implements IItemService.
type itemService struct {
	db  *mongo.Database
	cfg *config.Config
	rdb *redis.Client // nil disables the read cache
}

// NewItemService creates a new ItemService.
func NewItemService(database *mongo.Database, cfg *config.Config, rdb *redis.Client) IItemService {
	return &itemService{db: database, cfg: cfg, rdb: rdb}
}

func itemCacheKey(id primitive.ObjectID) string {
	return "item:" + id.Hex()
}

// FindAll returns every record in the collection in store-native order.
func (s *itemService) FindAll(ctx context.Context) ([]models.Item, error) {
	cursor, err := s.db.Collection(itemsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.Item{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

// FindByID returns the record with the given id, or mongo.ErrNoDocuments.
// Reads go through the Redis cache when one is configured; cache failures
// are logged and fall through to the store.
func (s *itemService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, itemCacheKey(id)).Bytes()
		if err == nil {
			var item models.Item
			if jsonErr := json.Unmarshal(cached, &item); jsonErr == nil {
				return &item, nil
			}
			// Unreadable cache entry; fall through to the store.
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("WARN: Redis get failed for %s: %v", itemCacheKey(id), err)
		}
	}

	var item models.Item
	err := s.db.Collection(itemsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding item %s: %w", id.Hex(), err)
	}

	s.cachePut(ctx, &item)
	return &item, nil
}

// Create assigns the published date and a fresh id, then performs a single
// atomic insert. The listing only becomes visible once the insert has
// durably returned the id; there is no partial write to observe.
func (s *itemService) Create(ctx context.Context, item *models.Item) (primitive.ObjectID, error) {
	collection := s.db.Collection(itemsCollection)
	item.PublishedDate = time.Now().UTC()

	operation := func() error {
		item.ID = primitive.NewObjectID()
		_, insertErr := collection.InsertOne(ctx, item)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert item after multiple retries: %w", err)
	}
	return item.ID, nil
}

// UpdateByID applies a $set of the allow-listed fields from the partial.
// Top-level fields merge into the document; a "condition" value replaces the
// whole existing subdocument. An id matching no record yields zero counts.
func (s *itemService) UpdateByID(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.UpdateAck, error) {
	setDoc := bson.M{}
	for key, value := range updates {
		if updatableItemFields[key] {
			setDoc[key] = value
		}
	}
	if len(setDoc) == 0 {
		// Nothing updatable in the partial; report no match rather than erroring.
		return &models.UpdateAck{}, nil
	}

	result, err := s.db.Collection(itemsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": setDoc})
	if err != nil {
		return nil, fmt.Errorf("db error updating item %s: %w", id.Hex(), err)
	}

	s.cacheDrop(ctx, id)
	return &models.UpdateAck{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// DeleteByID removes the record and returns the deleted count (0 or 1).
// Deleting a nonexistent id is not an error.
func (s *itemService) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := s.db.Collection(itemsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("db error deleting item %s: %w", id.Hex(), err)
	}

	s.cacheDrop(ctx, id)
	return result.DeletedCount, nil
}

func (s *itemService) cachePut(ctx context.Context, item *models.Item) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, itemCacheKey(item.ID), data, s.cfg.GetCacheTTL).Err(); err != nil {
		log.Printf("WARN: Redis set failed for %s: %v", itemCacheKey(item.ID), err)
	}
}

func (s *itemService) cacheDrop(ctx context.Context, id primitive.ObjectID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, itemCacheKey(id)).Err(); err != nil {
		log.Printf("WARN: Redis del failed for %s: %v", itemCacheKey(id), err)
	}
}
