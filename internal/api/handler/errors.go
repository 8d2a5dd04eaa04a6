package handler

import (
	"errors"

	"github.com/pushledger/pushledger/internal/api/models"
)

// fieldErrorer is satisfied by the domain ValidationError types.
type fieldErrorer interface {
	error
	FieldErrors() []models.FieldError
}

// validationErrors extracts per-field errors when err is a validation error
// from any domain package.
func validationErrors(err error) ([]models.FieldError, bool) {
	var ve fieldErrorer
	if errors.As(err, &ve) {
		return ve.FieldErrors(), true
	}
	return nil, false
}
