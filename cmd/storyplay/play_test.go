package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webstories/api"
	"webstories/media"
	"webstories/models"
	"webstories/playback"
	"webstories/reconcile"
	"webstories/slides"
	"webstories/store"
)

// stillClock never fires, so only typed commands move playback.
type stillClock struct{}

type stillTimer struct{}

func (stillClock) AfterFunc(time.Duration, func()) playback.Timer { return stillTimer{} }
func (stillTimer) Stop() bool                                     { return true }

func ms(v int) *int { return &v }

func TestPlay_NavigatesToFinish(t *testing.T) {
	story := &models.Story{Title: "Trip", Category: "Travel", Slides: []models.Slide{
		{Kind: models.KindImage, URL: "https://cdn.test/1.jpg", Duration: ms(1000), Animation: "zoom"},
		{Kind: models.KindImage, URL: "https://cdn.test/2.jpg", Duration: ms(2000)},
	}}
	out := &bytes.Buffer{}

	reason, err := play(context.Background(), strings.NewReader("n\nn\n"), out, story, stillClock{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if reason != playback.Finished {
		t.Errorf("reason = %v, want finished", reason)
	}
	for _, want := range []string{"Trip [Travel], 2 slides", "[1/2  50%] image https://cdn.test/1.jpg for 1s animation=zoom", "[2/2 100%]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlay_VideoEndAndQuit(t *testing.T) {
	story := &models.Story{Title: "Clip", Slides: []models.Slide{
		{Kind: models.KindVideo, URL: "https://cdn.test/v.mp4"},
		{Kind: models.KindImage, URL: "https://cdn.test/1.jpg"},
		{Kind: models.KindImage, URL: "https://cdn.test/2.jpg"},
	}}
	out := &bytes.Buffer{}

	reason, err := play(context.Background(), strings.NewReader("e\ne\nq\n"), out, story, stillClock{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if reason != playback.Closed {
		t.Errorf("reason = %v, want closed", reason)
	}
	if !strings.Contains(out.String(), "[2/3") || !strings.Contains(out.String(), "not a video slide") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out.String(), "[3/3") {
		t.Errorf("second end event advanced an image slide:\n%s", out)
	}
}

func TestPlay_EndOfInputCloses(t *testing.T) {
	story := &models.Story{Slides: []models.Slide{{Kind: models.KindImage, URL: "https://cdn.test/1.jpg"}}}

	reason, err := play(context.Background(), strings.NewReader("p\nwhat\n"), io.Discard, story, stillClock{})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if reason != playback.Closed {
		t.Errorf("reason = %v, want closed", reason)
	}
}

func TestPlay_EmptyStory(t *testing.T) {
	if _, err := play(context.Background(), strings.NewReader(""), io.Discard, &models.Story{}, stillClock{}); err == nil {
		t.Error("expected error for a story without slides")
	}
}

type nopMedia struct{}

func (nopMedia) Upload(context.Context, io.Reader, media.UploadOptions) (media.Asset, error) {
	return media.Asset{ID: "x", URL: "https://cdn.test/x"}, nil
}
func (nopMedia) Destroy(context.Context, string, models.Kind) error { return nil }

func TestListCommand(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := store.NewMemory()
	if err := repo.Create(context.Background(), &models.Story{Title: "Harbour", Category: "Travel"}); err != nil {
		t.Fatal(err)
	}
	engine := reconcile.NewEngine(repo, slides.NewBuilder(nopMedia{}, "web-stories", 1, logger), nopMedia{}, 1, logger)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(engine, 1<<20, logger), api.NewAuthenticator("s", logger), "", logger))
	defer srv.Close()

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"list", "--server", srv.URL})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "Harbour") || !strings.Contains(out.String(), "Travel") {
		t.Errorf("output:\n%s", out)
	}
}
