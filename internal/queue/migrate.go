package queue

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the queue tables plus the partial unique index that
// keeps a table from being actively assigned to two entries.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&QueueEntry{},
		&QueueTableAssignment{},
		&StatusChange{},
	); err != nil {
		return err
	}

	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_assignments_active_table
		ON queue_table_assignments (table_id)
		WHERE status IN ('ASSIGNED', 'SEATED')`).Error; err != nil {
		return fmt.Errorf("failed to create active assignment index: %w", err)
	}
	return nil
}
