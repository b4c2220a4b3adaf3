package utils

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validation errors
var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrPasswordNotComplex = errors.New("password must include at least one uppercase letter, one lowercase letter, one digit, and one special character")
	ErrInvalidResetCode   = errors.New("invalid reset code")
)

var (
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`\d`)
	specialRegex   = regexp.MustCompile(`[@$!%*?&]`)
)

// ValidateUserData validates a new account's credentials.
func ValidateUserData(username, email, password string) error {
	return validation.Errors{
		"username": validation.Validate(username, validation.Required, validation.Length(3, 50)),
		"email":    validation.Validate(email, validation.Required, is.EmailFormat),
		"password": validation.Validate(password, validation.Required.Error("password cannot be blank"), validation.By(ValidatePassword)),
	}.Filter()
}

// ValidatePasswordReset validates the reset code and new password.
func ValidatePasswordReset(resetCode, newPassword string) error {
	return validation.Errors{
		"resetCode": validation.Validate(resetCode, validation.Required.Error("invalid reset code"), validation.Length(6, 6).Error("invalid reset code")),
		"password":  validation.Validate(newPassword, validation.Required, validation.By(ValidatePassword)),
	}.Filter()
}

// ValidatePassword checks the password for length and complexity.
func ValidatePassword(value interface{}) error {
	password, _ := value.(string)
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !lowercaseRegex.MatchString(password) ||
		!uppercaseRegex.MatchString(password) ||
		!digitRegex.MatchString(password) ||
		!specialRegex.MatchString(password) {
		return ErrPasswordNotComplex
	}
	return nil
}

// ValidateProfile validates the editable profile fields.
func ValidateProfile(username, email string) error {
	return validation.Errors{
		"username": validation.Validate(username, validation.Required, validation.Length(3, 50)),
		"email":    validation.Validate(email, validation.Required, is.EmailFormat),
	}.Filter()
}

func ValidateEmail(email string) error {
	return validation.Validate(email, validation.Required, is.EmailFormat)
}
