package customer

import (
	"time"

	"suki-be/internal/address"
	"suki-be/internal/ledgersync"

	"github.com/google/uuid"
)

type ContactPreference string

const (
	ContactEmail ContactPreference = "email"
	ContactPhone ContactPreference = "phone"
	ContactSMS   ContactPreference = "sms"
)

type DeliveryMethod string

const (
	DeliveryPickup    DeliveryMethod = "pickup"
	DeliveryDelivered DeliveryMethod = "delivered"
	DeliveryCOD       DeliveryMethod = "cod"
	DeliveryCOP       DeliveryMethod = "cop"
)

type Customer struct {
	ID         uuid.UUID `json:"id"`
	AuthUserID string    `json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	ContactPreference ContactPreference `json:"contact_preference"`
	DeliveryMethod    DeliveryMethod    `json:"delivery_method"`
	CourierID         *uuid.UUID        `json:"courier_id,omitempty"`
	ProfileAddress    *string           `json:"profile_address,omitempty"`

	Sync ledgersync.Record `json:"sync"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterInput struct {
	// AuthUserID comes from the session, never from the request body.
	AuthUserID string `json:"-" validate:"notblank"`

	FirstName         string            `json:"first_name" validate:"notblank,max=100"`
	LastName          string            `json:"last_name" validate:"notblank,max=100"`
	Email             string            `json:"email" validate:"required,email,max=255"`
	Phone             string            `json:"phone" validate:"max=30"`
	ContactPreference ContactPreference `json:"contact_preference" validate:"omitempty,oneof=email phone sms"`
	DeliveryMethod    DeliveryMethod    `json:"delivery_method" validate:"required,oneof=pickup delivered cod cop"`
	CourierID         *uuid.UUID        `json:"courier_id"`

	Addresses []address.AddressInput `json:"addresses"`

	// IsReturning marks a customer who may already exist in the ledger.
	IsReturning bool `json:"is_returning"`
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName         *string            `json:"first_name" validate:"omitnil,notblank,max=100"`
	LastName          *string            `json:"last_name" validate:"omitnil,notblank,max=100"`
	Phone             *string            `json:"phone" validate:"omitnil,max=30"`
	ContactPreference *ContactPreference `json:"contact_preference" validate:"omitnil,oneof=email phone sms"`
	DeliveryMethod    *DeliveryMethod    `json:"delivery_method" validate:"omitnil,oneof=pickup delivered cod cop"`
	CourierID         *uuid.UUID         `json:"courier_id"`
	ClearCourier      bool               `json:"clear_courier"`
	ProfileAddress    *string            `json:"profile_address" validate:"omitnil,max=500"`
}

// AdminUpdateInput is UpdateProfileInput plus the fields only an
// administrator may change.
type AdminUpdateInput struct {
	UpdateProfileInput
	Email *string `json:"email" validate:"omitnil,email,max=255"`
}

type ListFilter struct {
	Search     string
	SyncStatus ledgersync.Status
	Limit      int
	Offset     int
}

// UpdateParams is what the repository writes for a partial update.
type UpdateParams struct {
	FirstName         *string
	LastName          *string
	Email             *string
	Phone             *string
	ContactPreference *ContactPreference
	DeliveryMethod    *DeliveryMethod
	CourierID         *uuid.UUID
	ClearCourier      bool
	ProfileAddress    *string
}
