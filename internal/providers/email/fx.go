package email

import (
	"github.com/ironlot/settlement/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMTPHost == "" {
		return &NoOpProvider{}
	}
	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
