package migration

import (
	"github.com/smallbiznis/catalogd/internal/config"
	importjobdomain "github.com/smallbiznis/catalogd/internal/importjob/domain"
	productdomain "github.com/smallbiznis/catalogd/internal/product/domain"
	webhookdomain "github.com/smallbiznis/catalogd/internal/webhook/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations target postgres; dev/test engines
			// get their schema from the models directly.
			return conn.AutoMigrate(
				&productdomain.Product{},
				&importjobdomain.ImportJob{},
				&webhookdomain.Webhook{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
