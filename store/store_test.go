package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"webstories/models"
)

func intPtr(v int) *int { return &v }

func TestMemory_CreateFindReplaceDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	story := &models.Story{
		Title:    "Trip",
		Category: "Travel",
		Slides:   []models.Slide{{Kind: models.KindImage, URL: "https://x/a.jpg", Duration: intPtr(1000)}},
	}
	if err := repo.Create(ctx, story); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if story.ID.IsZero() || story.Version != 1 || story.CreatedAt.IsZero() {
		t.Fatalf("Create did not assign id/version/createdAt: %+v", story)
	}

	// Mutating the caller's copy must not leak into the repository.
	*story.Slides[0].Duration = 42

	got, err := repo.FindByID(ctx, story.ID.Hex())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if *got.Slides[0].Duration != 1000 {
		t.Errorf("stored duration = %d, want 1000", *got.Slides[0].Duration)
	}

	got.Title = "Trip 2"
	if err := repo.Replace(ctx, got); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}

	stale := *story
	stale.Version = 1
	if err := repo.Replace(ctx, &stale); !errors.Is(err, models.ErrConflict) {
		t.Errorf("stale Replace err = %v, want ErrConflict", err)
	}

	if err := repo.Delete(ctx, story.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, story.ID.Hex()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("FindByID after delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, story.ID.Hex()); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestMemory_InvalidID(t *testing.T) {
	repo := NewMemory()
	if _, err := repo.FindByID(context.Background(), "not-hex"); !errors.Is(err, models.ErrInvalidID) {
		t.Errorf("err = %v, want ErrInvalidID", err)
	}
}

func TestMemory_FindAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"old", "middle", "new"} {
		s := &models.Story{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	var titles []string
	for _, s := range all {
		titles = append(titles, s.Title)
	}
	want := []string{"new", "middle", "old"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("order = %v, want %v", titles, want)
		}
	}
}

// countingRepo counts FindByID calls that reach the backing repository.
type countingRepo struct {
	*Memory
	finds int
}

func (c *countingRepo) FindByID(ctx context.Context, id string) (*models.Story, error) {
	c.finds++
	return c.Memory.FindByID(ctx, id)
}

func TestCached_InvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Memory: NewMemory()}
	repo := NewCached(inner, 16, time.Minute)

	story := &models.Story{Title: "cached"}
	if err := repo.Create(ctx, story); err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := story.ID.Hex()

	for i := 0; i < 3; i++ {
		if _, err := repo.FindByID(ctx, id); err != nil {
			t.Fatalf("FindByID: %v", err)
		}
	}
	if inner.finds != 1 {
		t.Errorf("backing finds = %d, want 1", inner.finds)
	}

	story.Title = "renamed"
	if err := repo.Replace(ctx, story); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("Title = %q, want renamed", got.Title)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, id); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCached_IDCaseSharesOneEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewCached(NewMemory(), 16, time.Minute)

	story := &models.Story{Title: "a"}
	if err := repo.Create(ctx, story); err != nil {
		t.Fatalf("Create: %v", err)
	}
	lower := story.ID.Hex()
	upper := strings.ToUpper(lower)

	if _, err := repo.FindByID(ctx, upper); err != nil {
		t.Fatalf("FindByID(%s): %v", upper, err)
	}
	if err := repo.Delete(ctx, lower); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := repo.FindByID(ctx, upper); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("FindByID(%s) after delete = %+v, %v; want ErrNotFound", upper, got, err)
	}
}

// stallingRepo parks FindByID after it has read, until release is closed.
type stallingRepo struct {
	*Memory
	read    chan struct{}
	release chan struct{}
}

func (s *stallingRepo) FindByID(ctx context.Context, id string) (*models.Story, error) {
	story, err := s.Memory.FindByID(ctx, id)
	if s.read != nil {
		s.read <- struct{}{}
		<-s.release
	}
	return story, err
}

func TestCached_ReplaceDuringMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &stallingRepo{Memory: NewMemory()}
	repo := NewCached(inner, 16, time.Minute)

	story := &models.Story{Title: "old"}
	if err := repo.Create(ctx, story); err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := story.ID.Hex()

	inner.read = make(chan struct{})
	inner.release = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = repo.FindByID(ctx, id)
	}()

	<-inner.read
	story.Title = "new"
	if err := repo.Replace(ctx, story); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	close(inner.release)
	<-done
	inner.read = nil

	got, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Title != "new" || got.Version != story.Version {
		t.Errorf("got title=%q version=%d, want title=new version=%d", got.Title, got.Version, story.Version)
	}
}
