// Package storage abstracts the object store that holds shipping documents
// and delivery evidence. The returned reference URL must resolve for both
// buyer and seller.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the object store rejected or never received the
// payload. Callers decide whether this degrades or blocks.
var ErrUnavailable = errors.New("storage_unavailable")

type Provider interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// NoOpProvider discards payloads. Used when no store is configured; every
// call reports ErrUnavailable so callers exercise their degradation paths.
type NoOpProvider struct{}

func (p *NoOpProvider) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	return "", ErrUnavailable
}
