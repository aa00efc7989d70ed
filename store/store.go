// Package store persists the Story aggregate.
//
// Every implementation keys stories by their hex ObjectID, returns
// models.ErrNotFound for unknown ids and models.ErrInvalidID for ids that
// cannot be parsed. Replace is guarded by the story's Version: a stale
// version yields models.ErrConflict and leaves the stored story untouched.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"webstories/models"
)

type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	// FindAll returns every story, newest first.
	FindAll(ctx context.Context) ([]models.Story, error)
	FindByID(ctx context.Context, id string) (*models.Story, error)
	// Replace overwrites the stored story and bumps story.Version on success.
	Replace(ctx context.Context, story *models.Story) error
	Delete(ctx context.Context, id string) error
}

func parseID(id string) (primitive.ObjectID, error) {
	return models.ParseStoryID(id)
}
