package application

import (
	"context"
	stderrors "errors"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
)

// toAppError maps a domain failure onto the HTTP-facing error taxonomy. The
// original error stays wrapped so callers can still match domain sentinels.
func toAppError(err error) error {
	if err == nil || errors.IsAppError(err) {
		return err
	}

	var validation *domain.ValidationError
	var state *domain.StateError
	switch {
	case stderrors.As(err, &validation):
		return errors.ErrValidationWithFields(validation.Error(), map[string]string{validation.Field: validation.Message}).Wrap(err)
	case stderrors.Is(err, domain.ErrValidation):
		return errors.ErrValidation(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrTargetMissing):
		return errors.ErrTargetMissing("target location").Wrap(err)
	case stderrors.As(err, &state):
		return errors.ErrInvalidState(state.Error()).
			WithDetail("requestId", state.RequestID).
			WithDetail("status", string(state.Status)).
			Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidState):
		return errors.ErrInvalidState(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrItemNotFound):
		return errors.ErrNotFound("item").Wrap(err)
	case stderrors.Is(err, domain.ErrLocationNotFound):
		return errors.ErrNotFound("location").Wrap(err)
	case stderrors.Is(err, domain.ErrWarehouseNotFound):
		return errors.ErrNotFound("warehouse").Wrap(err)
	case stderrors.Is(err, domain.ErrRequestNotFound):
		return errors.ErrNotFound("request").Wrap(err)
	case stderrors.Is(err, domain.ErrUserNotFound):
		return errors.ErrNotFound("user").Wrap(err)
	case stderrors.Is(err, domain.ErrNotFound):
		return errors.ErrNotFound("resource").Wrap(err)
	case stderrors.Is(err, domain.ErrConflict):
		return errors.ErrConflict(conflictMessage(err)).Wrap(err)
	case stderrors.Is(err, domain.ErrStoreUnavailable) && stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout("store call").Wrap(err)
	case stderrors.Is(err, domain.ErrStoreUnavailable):
		return errors.ErrServiceUnavailable("store").Wrap(err)
	case stderrors.Is(err, domain.ErrUnauthorized):
		return errors.ErrUnauthorized("").Wrap(err)
	case stderrors.Is(err, domain.ErrForbidden):
		return errors.ErrForbidden("").Wrap(err)
	default:
		return errors.ErrInternal("").Wrap(err)
	}
}

func conflictMessage(err error) string {
	for _, known := range []error{
		domain.ErrDuplicateSKU,
		domain.ErrDuplicateWarehouse,
		domain.ErrDuplicateUser,
		domain.ErrItemReferenced,
		domain.ErrSentinelWarehouse,
	} {
		if stderrors.Is(err, known) {
			return known.Error()
		}
	}
	return "concurrent update conflict, retries exhausted"
}

func withID(err error, key, id string) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail(key, id)
	}
	return err
}
