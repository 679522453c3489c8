// Package storage keeps uploaded PDF documents in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/domain"
)

const pdfContentType = "application/pdf"

// Sections documents may be filed under.
var Sections = []string{"bills", "fleet", "employees", "reports"}

var (
	// ErrNotPDF is returned for uploads that are not PDF documents.
	ErrNotPDF = errors.New("only PDF documents are accepted")

	unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)
	dashes      = regexp.MustCompile(`-{2,}`)
)

// SanitizeSegment lower-cases s and replaces anything outside [a-z0-9._-]
// with a single dash.
func SanitizeSegment(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = dashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-.")
}

// DocumentKey builds {section}/{sanitized-company}/{unix-millis}-{filename}.
func DocumentKey(section, company, filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name := SanitizeSegment(base)
	if name == "" || name == "pdf" {
		name = uuid.NewString() + ".pdf"
	}
	return fmt.Sprintf("%s/%s/%d-%s", SanitizeSegment(section), SanitizeSegment(company), now.UnixMilli(), name)
}

// KeyBelongsTo reports whether key was filed under company.
func KeyBelongsTo(key, company string) bool {
	parts := strings.Split(key, "/")
	return len(parts) == 3 && parts[1] != "" && parts[1] == SanitizeSegment(company)
}

// UploadRequest is a document upload.
type UploadRequest struct {
	Section  string
	Company  string
	FileName string
	Size     int64
	Body     io.Reader
}

// Document is a stored upload.
type Document struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// Documents validates uploads and files them in an ObjectStore.
type Documents struct {
	store    ObjectStore
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
}

// NewDocuments wires the document service.
func NewDocuments(store ObjectStore, ttl time.Duration, maxBytes int64) *Documents {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Documents{store: store, ttl: ttl, maxBytes: maxBytes, now: time.Now}
}

func validSection(section string) bool {
	for _, candidate := range Sections {
		if candidate == section {
			return true
		}
	}
	return false
}

// Upload stores a PDF and returns its key with a download link.
func (d *Documents) Upload(ctx context.Context, req UploadRequest) (Document, error) {
	var missing []string
	if strings.TrimSpace(req.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(req.Section) == "" {
		missing = append(missing, "section")
	}
	if req.Body == nil {
		missing = append(missing, "file")
	}
	if len(missing) > 0 {
		return Document{}, domain.NewMissingFieldsError(missing...)
	}

	section := SanitizeSegment(req.Section)
	if !validSection(section) {
		return Document{}, &domain.ValidationError{
			Fields:  []string{"section"},
			Message: fmt.Sprintf("section must be one of %s", strings.Join(Sections, ", ")),
		}
	}
	if d.maxBytes > 0 && req.Size > d.maxBytes {
		return Document{}, &domain.ValidationError{
			Fields:  []string{"file"},
			Message: fmt.Sprintf("file exceeds %d bytes", d.maxBytes),
		}
	}
	if !strings.EqualFold(path.Ext(req.FileName), ".pdf") {
		return Document{}, &domain.ValidationError{Fields: []string{"file"}, Message: ErrNotPDF.Error()}
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(req.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if http.DetectContentType(head) != pdfContentType {
		return Document{}, &domain.ValidationError{Fields: []string{"file"}, Message: ErrNotPDF.Error()}
	}

	key := DocumentKey(section, req.Company, req.FileName, d.now())
	body := io.MultiReader(bytes.NewReader(head), req.Body)
	if err := d.store.Put(ctx, key, pdfContentType, body, req.Size); err != nil {
		return Document{}, err
	}

	logrus.WithFields(logrus.Fields{"key": key, "bytes": req.Size}).Info("document stored")

	url, err := d.store.PresignGet(ctx, key, d.ttl)
	if err != nil {
		return Document{}, err
	}
	return Document{Key: key, URL: url}, nil
}

// URL returns a signed download link for a document of company. Keys filed
// under another company are reported as not found.
func (d *Documents) URL(ctx context.Context, company, key string) (Document, error) {
	var missing []string
	if strings.TrimSpace(company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(key) == "" {
		missing = append(missing, "key")
	}
	if len(missing) > 0 {
		return Document{}, domain.NewMissingFieldsError(missing...)
	}

	if !KeyBelongsTo(key, company) {
		return Document{}, fmt.Errorf("document %s: %w", key, domain.ErrNotFound)
	}

	url, err := d.store.PresignGet(ctx, key, d.ttl)
	if err != nil {
		return Document{}, err
	}
	return Document{Key: key, URL: url}, nil
}
