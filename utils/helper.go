package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "BD"

func IsValidEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": "invalid request"}
	}

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

const otpDigits = "0123456789"

// GenerateOtpCode returns a 6-digit numeric one-time code.
func GenerateOtpCode() (string, error) {
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(otpDigits))))
		if err != nil {
			return "", err
		}
		code[i] = otpDigits[n.Int64()]
	}
	return string(code), nil
}

const (
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
	passwordSymbols = "!@#$%^&*-_=+"
)

// GeneratePassword returns a random credential of the given length containing
// at least one letter, one digit and one symbol. Lengths below 12 are raised
// to 12.
func GeneratePassword(length int) (string, error) {
	if length < 12 {
		length = 12
	}
	all := passwordLetters + passwordDigits + passwordSymbols

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	out := make([]byte, length)
	var err error
	if out[0], err = pick(passwordLetters); err != nil {
		return "", err
	}
	if out[1], err = pick(passwordDigits); err != nil {
		return "", err
	}
	if out[2], err = pick(passwordSymbols); err != nil {
		return "", err
	}
	for i := 3; i < length; i++ {
		if out[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Shuffle so the mandatory classes are not always at the front.
	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}
