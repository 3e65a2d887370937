package domain

import "context"

// BlobWriter writes opaque payloads to durable object storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, contentType string, body []byte) error
}

// Archiver records finished sessions somewhere durable for offline analysis.
type Archiver interface {
	ArchiveSession(ctx context.Context, rec *SessionRecord) error
}
