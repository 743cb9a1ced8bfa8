package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/warmofmeme/memeboard/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// strictSanitizer strips all markup from user-supplied text before it is
// stored or echoed back.
var strictSanitizer = bluemonday.StrictPolicy()

func sanitizeText(input string) string {
	return strings.TrimSpace(strictSanitizer.Sanitize(input))
}

// FieldResult reports a single field-level check.
type FieldResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates the checks for a multi-field payload.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

func fieldOK() FieldResult {
	return FieldResult{IsValid: true}
}

func fieldError(message string) FieldResult {
	return FieldResult{Error: message}
}

// ValidationService bundles the stateless field rules plus input
// sanitization. Safe for concurrent use.
type ValidationService struct {
	sanitizer *bluemonday.Policy
}

// NewValidationService constructs the validation service with a strict
// sanitization policy that strips all markup.
func NewValidationService() *ValidationService {
	return &ValidationService{sanitizer: strictSanitizer}
}

// ValidateEmail reports whether the address matches the accepted shape.
func (v *ValidationService) ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateUsername checks length and charset.
func (v *ValidationService) ValidateUsername(username string) FieldResult {
	return checkUsername(username)
}

// ValidatePassword checks the minimum length.
func (v *ValidationService) ValidatePassword(password string) FieldResult {
	return checkPassword(password)
}

// ValidateComment checks the 1-500 character bound.
func (v *ValidationService) ValidateComment(text string) FieldResult {
	return checkComment(text)
}

// ValidateMeme aggregates the meme field rules.
func (v *ValidationService) ValidateMeme(input CreateMemeInput) Result {
	return toResult(input.Validate())
}

// ValidateArena aggregates the arena field rules.
func (v *ValidationService) ValidateArena(input ArenaInput) Result {
	return toResult(input.Validate())
}

// ValidateAchievement aggregates the achievement field rules.
func (v *ValidationService) ValidateAchievement(input AchievementInput) Result {
	return toResult(input.Validate())
}

// Sanitize strips markup from user-supplied text.
func (v *ValidationService) Sanitize(input string) string {
	return strings.TrimSpace(v.sanitizer.Sanitize(input))
}

func toResult(err error) Result {
	if err == nil {
		return Result{IsValid: true}
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return Result{Errors: validationErr.Messages}
	}
	return Result{Errors: []string{err.Error()}}
}

func checkUsername(username string) FieldResult {
	if len(username) < 3 {
		return fieldError("Username must be at least 3 characters long")
	}
	if !usernamePattern.MatchString(username) {
		return fieldError("Username can only contain letters, numbers, and underscores")
	}
	return fieldOK()
}

func checkPassword(password string) FieldResult {
	if len(password) < 6 {
		return fieldError("Password must be at least 6 characters long")
	}
	return fieldOK()
}

func checkComment(text string) FieldResult {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 1 {
		return fieldError("Comment cannot be empty")
	}
	if len([]rune(trimmed)) > 500 {
		return fieldError("Comment maximum length is 500 characters")
	}
	return fieldOK()
}
