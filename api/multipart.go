package api

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"webstories/models"
	"webstories/reconcile"
)

// slidesField names both the JSON metadata field and the file parts of a
// write submission.
const slidesField = "slides"

const maxMemory = 32 << 20

// formFile adapts an uploaded part to slides.File.
type formFile struct {
	h *multipart.FileHeader
}

func (f formFile) Filename() string { return f.h.Filename }

func (f formFile) ContentType() string {
	ct := f.h.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(f.h.Filename))
	}
	return ct
}

func (f formFile) Size() int64 { return f.h.Size }

func (f formFile) Open() (io.ReadCloser, error) { return f.h.Open() }

// decodeSubmission reads title, category, slide metadata and file parts.
// The slides metadata is validated before anything else happens. The
// returned cleanup removes temporary files of the parsed form.
func decodeSubmission(w http.ResponseWriter, r *http.Request, maxBytes int64) (reconcile.Submission, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	cleanup := func() {}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return reconcile.Submission{}, cleanup, err
			}
			return reconcile.Submission{}, cleanup, &models.ValidationError{Field: "body", Reason: "malformed multipart form"}
		}
		if err := r.ParseForm(); err != nil {
			return reconcile.Submission{}, cleanup, &models.ValidationError{Field: "body", Reason: "malformed form"}
		}
	}
	if r.MultipartForm != nil {
		form := r.MultipartForm
		cleanup = func() { _ = form.RemoveAll() }
	}

	sources, err := models.ParseSlideSources(r.FormValue(slidesField))
	if err != nil {
		return reconcile.Submission{}, cleanup, err
	}

	sub := reconcile.Submission{
		Title:    r.FormValue("title"),
		Category: r.FormValue("category"),
		Sources:  sources,
	}
	if r.MultipartForm != nil {
		for _, h := range r.MultipartForm.File[slidesField] {
			sub.Files = append(sub.Files, formFile{h: h})
		}
	}
	return sub, cleanup, nil
}
