package slipstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestObjectName(t *testing.T) {
	owner := uuid.MustParse("6a1f1c2e-0000-4000-8000-000000000001")
	at := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		mime, ext string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".png"},
		{"application/x-unknown-slip", ".bin"},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			name := ObjectName(owner, at, tt.mime)
			prefix := "slips/" + owner.String() + "/2024/06/"
			if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, tt.ext) {
				t.Fatalf("name = %q, want %s*%s", name, prefix, tt.ext)
			}
		})
	}

	if ObjectName(owner, at, "image/png") == ObjectName(owner, at, "image/png") {
		t.Fatalf("object names must not collide")
	}
}

func TestDiscard(t *testing.T) {
	uri, err := Discard{}.Put(context.Background(), uuid.New(), []byte{1}, "image/png")
	if err != nil || uri != "" {
		t.Fatalf("Discard.Put = %q, %v", uri, err)
	}
}
