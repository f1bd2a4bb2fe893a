// Package slipstore archives uploaded slip images.
package slipstore

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

const uploadTimeout = 2 * time.Minute

// Archive stores a slip image and returns where it went.
type Archive interface {
	Put(ctx context.Context, owner uuid.UUID, data []byte, mimeType string) (string, error)
}

// Discard is the archive used when no bucket is configured.
type Discard struct{}

func (Discard) Put(context.Context, uuid.UUID, []byte, string) (string, error) { return "", nil }

// GCSArchive writes slips to a Google Cloud Storage bucket. Credentials come
// from Application Default Credentials.
type GCSArchive struct {
	client *storage.Client
	bucket string
	logger *log.Logger
	now    func() time.Time
}

func NewGCSArchive(ctx context.Context, bucket string, logger *log.Logger) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &GCSArchive{
		client: client,
		bucket: bucket,
		logger: logger.WithComponent(log.ComponentSlips),
		now:    time.Now,
	}, nil
}

// Put uploads data and returns its gs:// URI.
func (a *GCSArchive) Put(ctx context.Context, owner uuid.UUID, data []byte, mimeType string) (string, error) {
	name := ObjectName(owner, a.now(), mimeType)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write slip %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize slip %s: %w", name, err)
	}

	uri := "gs://" + a.bucket + "/" + name
	a.logger.InfoContext(ctx, "Slip archived", log.FieldOwnerID, owner.String(), "uri", uri)
	return uri, nil
}

func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// ObjectName lays slips out as slips/<owner>/<yyyy>/<mm>/<random><ext>.
func ObjectName(owner uuid.UUID, at time.Time, mimeType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	switch strings.ToLower(mimeType) {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	}
	return path.Join("slips", owner.String(), at.UTC().Format("2006"), at.UTC().Format("01"), uuid.NewString()+ext)
}
