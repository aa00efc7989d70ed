package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"webstories/models"
)

// Memory is a process-local StoryRepository. Stored values are copied on
// the way in and out so callers never alias repository state.
type Memory struct {
	mu      sync.RWMutex
	stories map[primitive.ObjectID]models.Story
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		stories: make(map[primitive.ObjectID]models.Story),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Create(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	story.ID = primitive.NewObjectID()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = m.now()
	}
	if story.Slides == nil {
		story.Slides = []models.Slide{}
	}
	story.Version = 1
	m.stories[story.ID] = story.Clone()
	return nil
}

func (m *Memory) FindAll(_ context.Context) ([]models.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Story, 0, len(m.stories))
	for _, s := range m.stories {
		out = append(out, s.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*models.Story, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stories[oid]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := s.Clone()
	return &c, nil
}

func (m *Memory) Replace(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.stories[story.ID]
	if !ok {
		return models.ErrNotFound
	}
	if current.Version != story.Version {
		return models.ErrConflict
	}
	story.Version++
	m.stories[story.ID] = story.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[oid]; !ok {
		return models.ErrNotFound
	}
	delete(m.stories, oid)
	return nil
}
