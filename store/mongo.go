package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"webstories/models"
)

const storiesCollection = "stories"

// Mongo keeps stories in a MongoDB collection, one document per story with
// the slide sequence embedded.
type Mongo struct {
	collection *mongo.Collection
}

func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{collection: client.Database(database).Collection(storiesCollection)}
}

// EnsureIndexes creates the index backing FindAll's ordering.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create created_at index: %w", err)
	}
	return nil
}

func (m *Mongo) Create(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	// Initialize Slides to an empty array if it's nil
	if story.Slides == nil {
		story.Slides = []models.Slide{}
	}
	story.Version = 1

	if _, err := m.collection.InsertOne(ctx, story); err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	return nil
}

func (m *Mongo) FindAll(ctx context.Context) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}

	stories := []models.Story{}
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return stories, nil
}

func (m *Mongo) FindByID(ctx context.Context, id string) (*models.Story, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var story models.Story
	err = m.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find story %s: %w", id, err)
	}
	return &story, nil
}

func (m *Mongo) Replace(ctx context.Context, story *models.Story) error {
	expected := story.Version
	next := story.Clone()
	next.Version = expected + 1

	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": story.ID, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("replace story %s: %w", story.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.M{"_id": story.ID})
		if err != nil {
			return fmt.Errorf("count story %s: %w", story.ID.Hex(), err)
		}
		if n == 0 {
			return models.ErrNotFound
		}
		return models.ErrConflict
	}

	story.Version = next.Version
	return nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("delete story %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
