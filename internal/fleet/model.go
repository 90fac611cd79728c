package fleet

import "time"

// Lorry is a delivery truck in the distributor's fleet.
type Lorry struct {
	ID                 int64     `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	DriverName         string    `json:"driver_name"`
	CapacityCases      int       `json:"capacity_cases"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CreateLorryRequest struct {
	RegistrationNumber string `json:"registration_number" validate:"required,max=20"`
	DriverName         string `json:"driver_name" validate:"required,max=200"`
	CapacityCases      int    `json:"capacity_cases" validate:"gte=0"`
}

type UpdateLorryRequest struct {
	RegistrationNumber *string `json:"registration_number,omitempty" validate:"omitempty,max=20"`
	DriverName         *string `json:"driver_name,omitempty" validate:"omitempty,max=200"`
	CapacityCases      *int    `json:"capacity_cases,omitempty" validate:"omitempty,gte=0"`
	IsActive           *bool   `json:"is_active,omitempty"`
}
