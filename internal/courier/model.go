package courier

import (
	"time"

	"github.com/google/uuid"
)

type Courier struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	VehicleType string    `json:"vehicle_type"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Phone       string `json:"phone" validate:"max=30"`
	VehicleType string `json:"vehicle_type" validate:"omitempty,oneof=motorbike car van bicycle"`
}

type UpdateInput struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=100"`
	Phone       *string `json:"phone" validate:"omitnil,max=30"`
	VehicleType *string `json:"vehicle_type" validate:"omitnil,oneof=motorbike car van bicycle"`
	Active      *bool   `json:"active"`
}
