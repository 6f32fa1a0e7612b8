package registry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkarran/accessgate/internal/models"
)

// Sync persists the registered vocabulary to the backing database so that
// grants can reference permissions and roles by stable names.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("registry: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx := db.WithContext(ctx)

	for _, def := range GetAll() {
		record := models.Permission{
			Name:         def.Name,
			Title:        def.Title,
			GuardName:    def.GuardName,
			CategoryName: def.CategoryName,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "guard_name", "category_name"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("registry: sync permission %s: %w", def.Name, err)
		}
	}

	for _, def := range Roles() {
		record := models.Role{
			Name:     def.Name,
			Title:    def.Title,
			IsSystem: true,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"title"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("registry: sync role %s: %w", def.Name, err)
		}
	}

	return nil
}
