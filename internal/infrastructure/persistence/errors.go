package persistence

import (
	"errors"

	"github.com/ribotflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translate maps GORM errors onto domain errors. TranslateError must be enabled
// on the connection for duplicate keys to be recognised.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.ErrInUse
	}
	return err
}
