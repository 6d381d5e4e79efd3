// services/errors.go - translating store errors into business errors
package services

import (
	"errors"

	"taskhub/apperr"

	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound to a NotFound business error and
// passes every other error through.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
