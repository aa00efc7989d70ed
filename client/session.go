// Package client talks to the stories API. Credentials live on a Session
// value the caller passes around; nothing is kept in package state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"webstories/models"
)

// Session is an authenticated (or anonymous, with an empty Token) view of
// one API server.
type Session struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewSession(baseURL, token string) *Session {
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithToken returns a copy of s that sends token.
func (s *Session) WithToken(token string) *Session {
	c := *s
	c.Token = token
	return &c
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Is lets callers test 404 responses against models.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == models.ErrNotFound && e.Status == http.StatusNotFound
}

// SlideInput is one entry of the slides metadata of a write. Set FileIndex
// for a new upload or URL for a slide kept as is.
type SlideInput struct {
	FileIndex       *int        `json:"fileIndex,omitempty"`
	Kind            models.Kind `json:"kind,omitempty"`
	URL             string      `json:"url,omitempty"`
	ExternalAssetID string      `json:"externalAssetId,omitempty"`
	ResourceKind    models.Kind `json:"resourceKind,omitempty"`
	Duration        *int        `json:"duration,omitempty"`
	Animation       string      `json:"animation,omitempty"`
}

// NewUpload describes a slide backed by Files[index] of the same draft.
func NewUpload(index int, kind models.Kind, duration *int, animation string) SlideInput {
	return SlideInput{FileIndex: &index, Kind: kind, Duration: duration, Animation: animation}
}

// Retain resubmits an existing slide without uploading it again.
func Retain(s models.Slide) SlideInput {
	return SlideInput{
		Kind:            s.Kind,
		URL:             s.URL,
		ExternalAssetID: s.AssetID,
		ResourceKind:    s.ResourceKind,
		Duration:        s.Duration,
		Animation:       s.Animation,
	}
}

type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Draft is the content of a create or update call.
type Draft struct {
	Title    string
	Category string
	Slides   []SlideInput
	Files    []File
}

func (s *Session) List(ctx context.Context) ([]models.Story, error) {
	var stories []models.Story
	if err := s.do(ctx, http.MethodGet, "/api/stories", nil, "", &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (s *Session) Get(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	if err := s.do(ctx, http.MethodGet, "/api/stories/"+url.PathEscape(id), nil, "", &story); err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *Session) Create(ctx context.Context, d Draft) (*models.Story, error) {
	return s.write(ctx, http.MethodPost, "/api/stories", d)
}

func (s *Session) Update(ctx context.Context, id string, d Draft) (*models.Story, error) {
	return s.write(ctx, http.MethodPut, "/api/stories/"+url.PathEscape(id), d)
}

func (s *Session) Delete(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/stories/"+url.PathEscape(id), nil, "", nil)
}

func (s *Session) write(ctx context.Context, method, path string, d Draft) (*models.Story, error) {
	body, contentType, err := encodeDraft(d)
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := s.do(ctx, method, path, body, contentType, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

func encodeDraft(d Draft) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("title", d.Title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("category", d.Category); err != nil {
		return nil, "", err
	}
	if d.Slides != nil {
		meta, err := json.Marshal(d.Slides)
		if err != nil {
			return nil, "", fmt.Errorf("encode slides: %w", err)
		}
		if err := w.WriteField("slides", string(meta)); err != nil {
			return nil, "", err
		}
	}

	for _, f := range d.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="slides"; filename=%q`, f.Name))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func (s *Session) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	httpClient := s.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
