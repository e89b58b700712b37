package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"gorm.io/gorm"
)

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Parent{},
		&models.Branch{},
		&models.Product{},
	}
}

// Migrate creates or updates the schema and checks the lookup indexes exist.
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := EnsureIndexes(db, log); err != nil {
		return err
	}
	log.Info("Database migrations completed")
	return nil
}

// EnsureIndexes creates the indexes the ownership queries rely on when missing.
func EnsureIndexes(db *gorm.DB, log *logrus.Logger) error {
	indexes := []struct {
		model interface{}
		field string
	}{
		// Placement lookups for scope filters and cascades
		{&models.User{}, "ParentID"},
		{&models.User{}, "BranchID"},
		{&models.Product{}, "ParentID"},
		{&models.Product{}, "BranchID"},
		{&models.Branch{}, "ParentID"},
		{&models.Branch{}, "ManagerID"},

		// One parent per admin
		{&models.Parent{}, "AdminID"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.field) {
			continue
		}
		if err := migrator.CreateIndex(idx.model, idx.field); err != nil {
			return fmt.Errorf("failed to create index on %T.%s: %w", idx.model, idx.field, err)
		}
		log.WithField("index", fmt.Sprintf("%T.%s", idx.model, idx.field)).Info("Created index")
	}
	return nil
}
