package models

import (
	"time"

	"gorm.io/gorm"
)

// CustomerOtp is a short-lived email-ownership proof. The code itself is
// stored bcrypt-hashed; at most one live record exists per email.
type CustomerOtp struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Email          string    `gorm:"size:100;not null;index" json:"email"`
	OtpHash        string    `gorm:"size:255;not null" json:"-"`
	ExpirationTime time.Time `gorm:"not null" json:"expiration_time"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindLiveOtp returns the unexpired record for email, newest first.
func FindLiveOtp(tx *gorm.DB, email string, now time.Time) (*CustomerOtp, error) {
	var otp CustomerOtp
	err := tx.Where("email = ? AND expiration_time > ?", email, now).
		Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// DeleteOtpsForEmail removes every outstanding record for email, live or not.
func DeleteOtpsForEmail(tx *gorm.DB, email string) error {
	return tx.Where("email = ?", email).Delete(&CustomerOtp{}).Error
}

// PurgeExpiredOtps removes records whose expiration passed before cutoff and
// returns how many were deleted.
func PurgeExpiredOtps(tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := tx.Where("expiration_time <= ?", cutoff).Delete(&CustomerOtp{})
	return res.RowsAffected, res.Error
}
