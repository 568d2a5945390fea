package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/models"
)

// defaultRoles are created on first migration so tools can be tagged with
// role affinities out of the box.
var defaultRoles = []string{"owner", "admin", "pm", "developer", "designer", "analyst"}

// Migrate creates or updates the schema for all models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Category{},
		&models.Role{},
		&models.Tool{},
		&models.ToolComment{},
		&models.ToolRating{},
		&models.Activity{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return seedRoles(conn)
}

func seedRoles(conn *gorm.DB) error {
	for _, name := range defaultRoles {
		role := models.Role{Name: name}
		if err := conn.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("db: seed role %s: %w", name, err)
		}
	}
	return nil
}
