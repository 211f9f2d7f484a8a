package database

import (
	"gorm.io/gorm"

	"walkin/internal/outlets"
	"walkin/internal/queue"
)

// Migrate creates the outlet catalog and queue tables
func Migrate(db *gorm.DB) error {
	if err := outlets.Migrate(db); err != nil {
		return err
	}
	return queue.Migrate(db)
}
