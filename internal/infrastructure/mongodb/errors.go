package mongodb

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	pkgmongo "github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
)

var domainKinds = []error{
	domain.ErrValidation,
	domain.ErrNotFound,
	domain.ErrConflict,
	domain.ErrInvalidState,
	domain.ErrTargetMissing,
	domain.ErrStoreUnavailable,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
}

func isDomainError(err error) bool {
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// translate maps a driver error to a domain failure kind. The driver error
// stays in the chain so transaction labels remain visible to the retry loop.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case pkgmongo.IsUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
