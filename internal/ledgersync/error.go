package ledgersync

import (
	"errors"

	"suki-be/internal/apperror"
)

var (
	ErrNotConnected     = apperror.Validation("ledger is not connected")
	ErrNotLinked        = apperror.Validation("customer is not linked to a ledger contact")
	ErrInvalidAction    = apperror.Validation("sync action must be 'create' or 'match'")
	ErrInvalidContactID = apperror.Validation("contact id is required")
	ErrCustomerNotFound = apperror.NotFound("customer not found")
	ErrSyncInProgress   = apperror.Conflict("a sync for this customer is already in progress")

	errNoMatch = errors.New("no matching contact found in ledger")
)
