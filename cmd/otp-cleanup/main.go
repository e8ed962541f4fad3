package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/models"
)

// otp-cleanup deletes one-time codes whose expiry passed more than the grace
// window ago. Expired codes are already unusable; this keeps the table from
// growing unbounded. Run it as a scheduled job.
//
// Dry-run (default): show the count only
//   go run ./cmd/otp-cleanup -dry-run=true
//
// Execute:
//   go run ./cmd/otp-cleanup -dry-run=false
func main() {
	graceHours := flag.Int("grace-hours", 24, "Keep codes expired less than this many hours ago")
	dryRun := flag.Bool("dry-run", true, "Count only (no writes)")
	flag.Parse()

	if *graceHours < 0 {
		fmt.Fprintln(os.Stderr, "--grace-hours must be >= 0")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(*graceHours) * time.Hour)

	if *dryRun {
		var count int64
		if err := db.Model(&models.CustomerOtp{}).Where("expiration_time < ?", cutoff).Count(&count).Error; err != nil {
			fmt.Fprintf(os.Stderr, "count failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("dry-run: %d expired otp rows older than %s would be deleted\n", count, cutoff.Format(time.RFC3339))
		return
	}

	deleted, err := models.PurgeExpiredOtps(db, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "purge failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted %d expired otp rows older than %s\n", deleted, cutoff.Format(time.RFC3339))
}
