package address

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAddresses is the most addresses a customer may hold.
const MaxAddresses = 3

type Address struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`

	Label              string `json:"label"`
	RecipientFirstName string `json:"recipient_first_name"`
	RecipientLastName  string `json:"recipient_last_name"`

	StreetAddress string  `json:"street_address"`
	Barangay      string  `json:"barangay"`
	City          string  `json:"city"`
	Province      string  `json:"province"`
	Region        *string `json:"region,omitempty"`
	PostalCode    string  `json:"postal_code"`

	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AddressInput struct {
	Label              string  `json:"label" validate:"notblank,max=50"`
	RecipientFirstName string  `json:"recipient_first_name" validate:"notblank,max=100"`
	RecipientLastName  string  `json:"recipient_last_name" validate:"notblank,max=100"`
	StreetAddress      string  `json:"street_address" validate:"notblank,max=255"`
	Barangay           string  `json:"barangay" validate:"notblank,max=100"`
	City               string  `json:"city" validate:"notblank,max=100"`
	Province           string  `json:"province" validate:"notblank,max=100"`
	Region             *string `json:"region" validate:"omitempty,max=100"`
	PostalCode         string  `json:"postal_code" validate:"postalcode"`
	IsDefault          bool    `json:"is_default"`
}

func (in *AddressInput) normalize() {
	in.Label = strings.TrimSpace(in.Label)
	in.RecipientFirstName = strings.TrimSpace(in.RecipientFirstName)
	in.RecipientLastName = strings.TrimSpace(in.RecipientLastName)
	in.StreetAddress = strings.TrimSpace(in.StreetAddress)
	in.Barangay = strings.TrimSpace(in.Barangay)
	in.City = strings.TrimSpace(in.City)
	in.Province = strings.TrimSpace(in.Province)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Region = trimOptional(in.Region)
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Label              *string `json:"label" validate:"omitnil,notblank,max=50"`
	RecipientFirstName *string `json:"recipient_first_name" validate:"omitnil,notblank,max=100"`
	RecipientLastName  *string `json:"recipient_last_name" validate:"omitnil,notblank,max=100"`
	StreetAddress      *string `json:"street_address" validate:"omitnil,notblank,max=255"`
	Barangay           *string `json:"barangay" validate:"omitnil,notblank,max=100"`
	City               *string `json:"city" validate:"omitnil,notblank,max=100"`
	Province           *string `json:"province" validate:"omitnil,notblank,max=100"`
	Region             *string `json:"region" validate:"omitempty,max=100"`
	PostalCode         *string `json:"postal_code" validate:"omitnil,postalcode"`
	IsDefault          *bool   `json:"is_default"`
}

func (in *UpdateInput) normalize() {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	in.Label = trim(in.Label)
	in.RecipientFirstName = trim(in.RecipientFirstName)
	in.RecipientLastName = trim(in.RecipientLastName)
	in.StreetAddress = trim(in.StreetAddress)
	in.Barangay = trim(in.Barangay)
	in.City = trim(in.City)
	in.Province = trim(in.Province)
	in.PostalCode = trim(in.PostalCode)
	// a blank region still clears the stored one
	in.Region = trim(in.Region)
}

// apply copies the set fields of in onto a.
func (in UpdateInput) apply(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&a.Label, in.Label)
	set(&a.RecipientFirstName, in.RecipientFirstName)
	set(&a.RecipientLastName, in.RecipientLastName)
	set(&a.StreetAddress, in.StreetAddress)
	set(&a.Barangay, in.Barangay)
	set(&a.City, in.City)
	set(&a.Province, in.Province)
	set(&a.PostalCode, in.PostalCode)
	if in.Region != nil {
		a.Region = trimOptional(in.Region)
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// FromInput builds a new address for customerID. The default flag is
// decided by the registry, not copied from in.
func FromInput(customerID uuid.UUID, in AddressInput) *Address {
	in.normalize()
	return &Address{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		Label:              in.Label,
		RecipientFirstName: in.RecipientFirstName,
		RecipientLastName:  in.RecipientLastName,
		StreetAddress:      in.StreetAddress,
		Barangay:           in.Barangay,
		City:               in.City,
		Province:           in.Province,
		Region:             in.Region,
		PostalCode:         in.PostalCode,
	}
}

// Summary renders a one-line form of a, as stored on the customer profile.
func (a *Address) Summary() string {
	parts := []string{a.StreetAddress, a.Barangay, a.City, a.Province}
	if a.Region != nil {
		parts = append(parts, *a.Region)
	}
	return strings.Join(parts, ", ") + " " + a.PostalCode
}
