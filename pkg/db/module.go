package db

import (
	"context"
	"time"

	"github.com/ironlot/settlement/internal/config"
	"github.com/ironlot/settlement/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("db",
	fx.Provide(fromAppConfig),
	fx.Provide(Open),
)

func fromAppConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// Open connects to the configured database and registers pool lifecycle hooks.
func Open(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(logger.DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			log.Info("closing database pool")
			return sqlDB.Close()
		},
	})

	return gormDB, nil
}
