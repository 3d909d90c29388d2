package report

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
)

const archiveKeyPrefix = "reports/"

// Archiver keeps a copy of every generated CSV report in a GCS bucket, so
// past aggregation runs can be compared after the underlying signups change.
type Archiver struct {
	gcs    *storage.Client
	bucket string
}

func NewArchiver(gcs *storage.Client, bucket string) *Archiver {
	return &Archiver{
		gcs:    gcs,
		bucket: bucket,
	}
}

// Put stores one rendered report under its download filename.  Repeated runs
// over the same range overwrite each other.
func (a *Archiver) Put(ctx context.Context, filename string, data []byte) error {
	obj := a.gcs.Bucket(a.bucket).Object(path.Join(archiveKeyPrefix, filename))

	w := obj.NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("while writing report object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("while finalizing report object: %w", err)
	}

	return nil
}
