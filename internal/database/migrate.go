package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/fridgechef/backend/internal/model"
)

// RunMigrations creates or updates the schema
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Analysis{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
