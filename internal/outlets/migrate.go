package outlets

import "gorm.io/gorm"

// Migrate creates the outlet catalog tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Outlet{},
		&Table{},
		&PeakHourRule{},
	)
}
