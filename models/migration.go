package models

import (
	"log"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) {
	err := db.AutoMigrate(
		&CustomerOtp{},
	)
	if err != nil {
		log.Printf("auto migration failed: %v", err)
	}
}
