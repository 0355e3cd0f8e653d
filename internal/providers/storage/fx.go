package storage

import (
	"github.com/ironlot/settlement/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.storage",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.StorageDir == "" {
		return &NoOpProvider{}
	}
	return NewDisk(DiskConfig{
		Dir:     cfg.StorageDir,
		BaseURL: cfg.StorageBaseURL,
	})
}
