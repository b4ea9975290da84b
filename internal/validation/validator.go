package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blog-content-api/internal/models"
	"github.com/google/uuid"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,80}$`)
)

const (
	maxEmailLength    = 120
	maxPasswordLength = 72 // bcrypt ignores anything longer
	maxCategoryLength = 100
	maxTags           = 20
	maxTagLength      = 50
)

// Validator checks request payloads at the HTTP boundary
type Validator struct {
	maxTopUp int64
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{maxTopUp: models.MaxTopUpAmount}
}

// ValidateRegistration validates a registration form
func (v *Validator) ValidateRegistration(req *models.RegisterRequest) []models.ValidationError {
	var errors []models.ValidationError

	// Validate username
	if req.Username == "" {
		errors = append(errors, models.ValidationError{Field: "username", Message: "username is required"})
	} else if !handleRegex.MatchString(req.Username) {
		errors = append(errors, models.ValidationError{
			Field:   "username",
			Message: "username must be 3-80 letters, digits, '.', '_' or '-'",
			Value:   req.Username,
		})
	}

	// Validate email
	if req.Email == "" {
		errors = append(errors, models.ValidationError{Field: "email", Message: "email is required"})
	} else if len(req.Email) > maxEmailLength || !emailRegex.MatchString(req.Email) {
		errors = append(errors, models.ValidationError{Field: "email", Message: "invalid email format", Value: req.Email})
	}

	errors = append(errors, validateNewPassword("password", req.Password, req.ConfirmPassword)...)
	return errors
}

// ValidatePasswordChange validates the new half of a password change form
func (v *Validator) ValidatePasswordChange(req *models.ChangePasswordRequest) []models.ValidationError {
	var errors []models.ValidationError
	if req.OldPassword == "" {
		errors = append(errors, models.ValidationError{Field: "old_password", Message: "old_password is required"})
	}
	return append(errors, validateNewPassword("new_password", req.NewPassword, req.ConfirmPassword)...)
}

func validateNewPassword(field, password, confirm string) []models.ValidationError {
	var errors []models.ValidationError

	switch {
	case password == "":
		errors = append(errors, models.ValidationError{Field: field, Message: field + " is required"})
	case len(password) < models.MinPasswordLength:
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at least %d characters", field, models.MinPasswordLength),
		})
	case len(password) > maxPasswordLength:
		errors = append(errors, models.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be at most %d bytes", field, maxPasswordLength),
		})
	}

	if password != confirm {
		errors = append(errors, models.ValidationError{Field: "confirm_password", Message: models.ErrPasswordMismatch.Message})
	}
	return errors
}

// ValidateArticle validates an authoring form
func (v *Validator) ValidateArticle(req *models.CreateArticleRequest) []models.ValidationError {
	var errors []models.ValidationError

	// Validate title
	title := strings.TrimSpace(req.Title)
	if title == "" {
		errors = append(errors, models.ValidationError{Field: "title", Message: "title is required"})
	} else if len([]rune(title)) > models.MaxTitleLength {
		errors = append(errors, models.ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title exceeds maximum of %d characters", models.MaxTitleLength),
		})
	}

	// Validate body
	if strings.TrimSpace(req.Body) == "" {
		errors = append(errors, models.ValidationError{Field: "body", Message: "body is required"})
	}

	if len([]rune(req.Summary)) > models.MaxSummaryLength {
		errors = append(errors, models.ValidationError{
			Field:   "summary",
			Message: fmt.Sprintf("summary exceeds maximum of %d characters", models.MaxSummaryLength),
		})
	}
	if len([]rune(req.Category)) > maxCategoryLength {
		errors = append(errors, models.ValidationError{Field: "category", Message: "category is too long", Value: req.Category})
	}

	tags := ParseTags(req.Tags)
	if len(tags) > maxTags {
		errors = append(errors, models.ValidationError{
			Field:   "tags",
			Message: fmt.Sprintf("at most %d tags are allowed", maxTags),
		})
	}
	for _, tag := range tags {
		if len([]rune(tag)) > maxTagLength {
			errors = append(errors, models.ValidationError{Field: "tags", Message: "tag is too long", Value: tag})
			break
		}
	}

	return errors
}

// ParseTags splits comma-separated entries, trims them and drops empties
// and duplicates while keeping first-seen order.
func ParseTags(input []string) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, entry := range input {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeComment trims the body and enforces the emptiness and word limits.
// An empty body yields models.ErrEmptyBody.
func (v *Validator) NormalizeComment(req *models.AddCommentRequest) (string, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return "", models.ErrEmptyBody
	}

	// Check word count (max 500 words)
	wordCount := len(strings.Fields(body))
	if wordCount > models.MaxCommentWords {
		return "", models.NewValidationError([]models.ValidationError{{
			Field:   "body",
			Message: fmt.Sprintf("body exceeds maximum of %d words (has %d)", models.MaxCommentWords, wordCount),
		}})
	}

	if req.ParentID != "" && !isValidUUID(req.ParentID) {
		return "", models.NewValidationError([]models.ValidationError{{
			Field: "parent_id", Message: "invalid UUID format", Value: req.ParentID,
		}})
	}
	return body, nil
}

// ValidateTopUp validates a recharge amount
func (v *Validator) ValidateTopUp(req *models.TopUpRequest) []models.ValidationError {
	if req.Amount <= 0 {
		return []models.ValidationError{{Field: "amount", Message: "amount must be a positive integer", Value: req.Amount}}
	}
	if req.Amount > v.maxTopUp {
		return []models.ValidationError{{
			Field:   "amount",
			Message: fmt.Sprintf("amount must not exceed %d", v.maxTopUp),
			Value:   req.Amount,
		}}
	}
	return nil
}

// IsValidID reports whether s is a well-formed entity identifier
func IsValidID(s string) bool {
	return isValidUUID(s)
}

// isValidUUID checks if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
