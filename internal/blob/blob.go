// Package blob stores uploaded supporting documents (deeds, prior-art
// scans) and hands back URLs for embedding in application payloads. It is
// a collaborator of the lifecycle engine, not part of it: the engine only
// ever sees the opaque URLs.
package blob

import "context"

// Store persists uploaded documents.
type Store interface {
	// Upload stores content under a fresh ID and returns the URL it will be
	// served from.
	Upload(ctx context.Context, name, contentType string, content []byte) (string, error)
	// Fetch returns the stored document; sentinel.ErrNotFound when absent.
	Fetch(ctx context.Context, id string) (Document, error)
}

// Document is a stored upload.
type Document struct {
	ID          string
	Name        string
	ContentType string
	Content     []byte
}
