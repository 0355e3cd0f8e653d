package migration

import (
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	partydomain "github.com/ironlot/settlement/internal/party/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		if conn.Dialector.Name() != "postgres" {
			// sqlite and mysql are dev conveniences; gorm's schema sync is
			// enough there.
			log.Named("migration").Info("non-postgres database, using schema sync",
				zap.String("dialect", conn.Dialector.Name()),
			)
			return conn.AutoMigrate(
				&partydomain.Party{},
				&invoicedomain.Invoice{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
