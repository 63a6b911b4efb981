package address

import (
	"suki-be/internal/apperror"
	"suki-be/internal/db"
)

var (
	ErrAddressNotFound         = apperror.NotFound("address not found")
	ErrCustomerNotFound        = apperror.NotFound("customer not found")
	ErrMaxAddresses            = apperror.Validation("a customer can have at most 3 addresses")
	ErrCannotDeleteOnlyAddress = apperror.Validation("cannot delete the only address unless delivery method is pickup")
	ErrDuplicateDefault        = apperror.Conflict("customer already has a default address")
)

const oneDefaultConstraint = "addresses_one_default_idx"

// mapConstraint turns a unique violation on the single-default index into
// ErrDuplicateDefault.
func mapConstraint(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == oneDefaultConstraint {
		return ErrDuplicateDefault
	}
	return err
}
