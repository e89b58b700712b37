package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("not permitted for this scope")
	ErrUnassigned            = errors.New("no parent or branch assigned")
	ErrAlreadyAssigned       = errors.New("already assigned")
	ErrAlreadyMember         = errors.New("already a member")
	ErrNotAMember            = errors.New("not a member")
	ErrRoleNotAssignable     = errors.New("role cannot be assigned")
	ErrRoleProtected         = errors.New("role is protected")
	ErrDuplicateIdentifier   = errors.New("email already registered")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrConflict              = errors.New("concurrent modification, please retry")
	ErrValidationFailed      = errors.New("validation failed")

	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrNotificationFailed = errors.New("notification could not be sent")
	ErrInvalidImage       = errors.New("invalid image")
)

// ValidationError lists the offending fields. It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func invalidField(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// storeErr maps a repository lookup failure to the service taxonomy.
func storeErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
