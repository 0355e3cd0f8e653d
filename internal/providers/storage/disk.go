package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type DiskConfig struct {
	Dir     string
	BaseURL string
}

// DiskProvider writes payloads under a local directory served by the platform
// at BaseURL. Stands in for the marketplace object store in self-hosted
// deployments.
type DiskProvider struct {
	cfg DiskConfig
}

func NewDisk(cfg DiskConfig) *DiskProvider {
	return &DiskProvider{cfg: cfg}
}

func (p *DiskProvider) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrUnavailable)
	}

	if err := os.MkdirAll(p.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	name := uuid.NewString() + extensionFor(contentType)
	path := filepath.Join(p.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return strings.TrimRight(p.cfg.BaseURL, "/") + "/" + name, nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}
