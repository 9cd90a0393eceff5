package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGuideNotFound    = errors.New("guide not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSlugConflict     = errors.New("slug already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTemporary        = errors.New("temporary failure")
	ErrConfig           = errors.New("invalid configuration")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
