package models

import (
	"testing"
)

func TestParseSlideSources_Variants(t *testing.T) {
	payload := `[
		{"kind":"image","duration":3000,"animation":"fade","fileIndex":0},
		{"type":"video","fileIndex":1},
		{"kind":"image","url":"https://cdn.example/a.jpg","externalAssetId":"web-stories/image/a","resourceKind":"image"},
		{"url":"https://elsewhere.example/b.png","public_id":"legacy-id","resource_type":"video"}
	]`

	sources, err := ParseSlideSources(payload)
	if err != nil {
		t.Fatalf("ParseSlideSources: %v", err)
	}
	if len(sources) != 4 {
		t.Fatalf("len = %d, want 4", len(sources))
	}

	up, ok := sources[0].(UploadedFile)
	if !ok {
		t.Fatalf("sources[0] = %T, want UploadedFile", sources[0])
	}
	if up.FileIndex != 0 || up.Kind != KindImage || up.Animation != "fade" {
		t.Errorf("sources[0] = %+v", up)
	}
	if up.Duration == nil || *up.Duration != 3000 {
		t.Errorf("sources[0].Duration = %v, want 3000", up.Duration)
	}

	vid := sources[1].(UploadedFile)
	if vid.FileIndex != 1 || vid.Kind != KindVideo {
		t.Errorf("sources[1] = %+v", vid)
	}

	kept, ok := sources[2].(RetainedURL)
	if !ok {
		t.Fatalf("sources[2] = %T, want RetainedURL", sources[2])
	}
	if kept.AssetID != "web-stories/image/a" || kept.URL != "https://cdn.example/a.jpg" {
		t.Errorf("sources[2] = %+v", kept)
	}

	legacy := sources[3].(RetainedURL)
	if legacy.AssetID != "legacy-id" || legacy.ResourceKind != KindVideo {
		t.Errorf("sources[3] = %+v", legacy)
	}
}

func TestParseSlideSources_Empty(t *testing.T) {
	sources, err := ParseSlideSources("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sources != nil {
		t.Errorf("sources = %v, want nil", sources)
	}
}

func TestParseSlideSources_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{not json`},
		{"object instead of array", `{"fileIndex":0}`},
		{"neither shape", `[{"kind":"image","duration":1000}]`},
		{"both shapes", `[{"fileIndex":0,"url":"https://x/y.jpg"}]`},
		{"negative index", `[{"fileIndex":-1}]`},
		{"fractional index", `[{"fileIndex":1.5}]`},
		{"unknown kind", `[{"kind":"audio","fileIndex":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSlideSources(tt.payload)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsValidation(err) {
				t.Errorf("err = %v, want *ValidationError", err)
			}
		})
	}
}

func TestParseSlideSources_MalformedDurationFallsBack(t *testing.T) {
	sources, err := ParseSlideSources(`[{"fileIndex":0,"duration":"soon"},{"fileIndex":1,"duration":"1500"},{"fileIndex":2,"duration":-4}]`)
	if err != nil {
		t.Fatalf("ParseSlideSources: %v", err)
	}
	if d := sources[0].(UploadedFile).Duration; d != nil {
		t.Errorf("sources[0].Duration = %d, want unset", *d)
	}
	if d := sources[1].(UploadedFile).Duration; d == nil || *d != 1500 {
		t.Errorf("sources[1].Duration = %v, want 1500", d)
	}
	if d := sources[2].(UploadedFile).Duration; d != nil {
		t.Errorf("sources[2].Duration = %d, want unset", *d)
	}
}

func TestRetainedURL_SlideDefaults(t *testing.T) {
	img := RetainedURL{URL: "https://x/a.jpg"}.Slide()
	if img.Kind != KindImage || img.ResourceKind != KindImage {
		t.Errorf("kind = %q/%q, want image/image", img.Kind, img.ResourceKind)
	}
	if img.Duration == nil || *img.Duration != DefaultDuration {
		t.Errorf("duration = %v, want %d", img.Duration, DefaultDuration)
	}
	if img.Owned() {
		t.Error("retained slide without asset id must not be owned")
	}

	d := 9000
	vid := RetainedURL{URL: "https://x/v.mp4", Kind: KindVideo, Duration: &d, AssetID: "v"}.Slide()
	if vid.Duration != nil {
		t.Errorf("video duration = %d, want unset", *vid.Duration)
	}
	if !vid.Owned() || vid.AssetKind() != KindVideo {
		t.Errorf("video slide = %+v", vid)
	}
}

func TestKindFromMediaType(t *testing.T) {
	cases := map[string]Kind{
		"video/mp4":  KindVideo,
		"Video/webm": KindVideo,
		"image/png":  KindImage,
		"":           KindImage,
		"application/octet-stream": KindImage,
	}
	for in, want := range cases {
		if got := KindFromMediaType(in); got != want {
			t.Errorf("KindFromMediaType(%q) = %q, want %q", in, got, want)
		}
	}
}
