// Package media uploads and releases the binary objects slides point at.
package media

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/rs/xid"

	"webstories/models"
)

// UploadOptions describes where and how an object is stored.
type UploadOptions struct {
	Folder       string
	ResourceKind models.Kind
	ObjectID     string
	ContentType  string
	Size         int64
}

// Asset is a stored object: its stable id (the cleanup key) and public URL.
type Asset struct {
	ID  string
	URL string
}

// Store is the contract the slide builder and reconciliation rely on.
// Destroy errors are advisory; callers log them and move on.
type Store interface {
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Asset, error)
	Destroy(ctx context.Context, assetID string, kind models.Kind) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// NewObjectID derives a time-ordered object id from an original filename,
// e.g. "cn4q0b2v9kc7p0s1e5fg-beach".
func NewObjectID(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if base == "" {
		return xid.New().String()
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return xid.New().String() + "-" + base
}

// ObjectKey is the storage key for an upload: folder/kind/objectID.ext
func ObjectKey(opts UploadOptions, ext string) string {
	kind := string(opts.ResourceKind)
	if kind == "" {
		kind = string(models.KindImage)
	}
	return path.Join(opts.Folder, kind, opts.ObjectID) + strings.ToLower(ext)
}
