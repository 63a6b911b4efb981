package customer

import (
	"suki-be/internal/apperror"
	"suki-be/internal/db"
)

var (
	ErrCustomerNotFound   = apperror.NotFound("customer not found")
	ErrEmailExists        = apperror.Conflict("email is already registered")
	ErrAlreadyRegistered  = apperror.Conflict("this account already has a customer profile")
	ErrAddressRequired    = apperror.Validation("at least one address is required unless delivery method is pickup")
	ErrCourierUnavailable = apperror.Validation("courier not found or inactive")
	ErrInvalidSyncStatus  = apperror.Validation("unknown sync status filter")
)

func mapConstraint(err error) error {
	name, ok := db.UniqueViolation(err)
	if !ok {
		return err
	}
	switch name {
	case "customers_email_key":
		return ErrEmailExists
	case "customers_auth_user_id_key":
		return ErrAlreadyRegistered
	}
	return err
}
