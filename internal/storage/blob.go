// Package storage is the attachment blob store. Callers treat it as opaque:
// they hand it bytes and get back an Object they can later delete by its
// public ID.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidPublicID = errors.New("storage: invalid public id")

// Object describes a stored blob.
type Object struct {
	PublicID     string
	URL          string
	Format       string
	ResourceType string

	// Checksum is the hex BLAKE3 digest of the stored bytes.
	Checksum string
}

type BlobStore interface {
	Put(ctx context.Context, filename string, r io.Reader) (Object, error)

	// Delete removes a blob. Deleting a blob that does not exist is not an
	// error.
	Delete(ctx context.Context, publicID, resourceType string) error
}

const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)
