package auth

import (
	"strings"
	"unicode"

	"github.com/luchovc/agency-portal/internal"
)

type LoginDTO struct {
	HabboName string `json:"habbo_name"`
	Password  string `json:"password"`
}

func (dto LoginDTO) Validate() error {
	if strings.TrimSpace(dto.HabboName) == "" {
		return internal.NewValidationFieldError("habbo_name", "habbo name is required", internal.ErrCodeValidationFailed)
	}
	if dto.Password == "" {
		return internal.NewValidationFieldError("password", "password is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RegisterDTO struct {
	HabboName        string `json:"habbo_name"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirm_password"`
	VerificationCode string `json:"verification_code"`
}

func (dto RegisterDTO) Validate() error {
	if strings.TrimSpace(dto.HabboName) == "" {
		return internal.NewValidationFieldError("habbo_name", "habbo name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.HabboName) > 32 {
		return internal.NewValidationFieldError("habbo_name", "habbo name must be at most 32 characters", internal.ErrCodeValidationFailed)
	}
	if err := ValidatePasswordComplexity(dto.Password); err != nil {
		return err
	}
	if dto.Password != dto.ConfirmPassword {
		return internal.NewValidationError("passwords do not match", internal.ErrCodePasswordMismatch)
	}
	if strings.TrimSpace(dto.VerificationCode) == "" {
		return internal.NewValidationFieldError("verification_code", "verification code is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

// ValidatePasswordComplexity enforces min length 8 with upper, lower, digit
// and special characters.
func ValidatePasswordComplexity(password string) error {
	if len(password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeWeakPassword)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return internal.NewValidationError(
			"password must contain uppercase, lowercase, digit and special characters",
			internal.ErrCodeWeakPassword)
	}
	return nil
}

type VerificationCodeDTO struct {
	HabboName string `json:"habbo_name"`
}

func (dto VerificationCodeDTO) Validate() error {
	if strings.TrimSpace(dto.HabboName) == "" {
		return internal.NewValidationFieldError("habbo_name", "habbo name is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (dto RefreshTokenDTO) Validate() error {
	if dto.RefreshToken == "" {
		return internal.NewValidationFieldError("refresh_token", "refresh token is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
