package users

import "time"

// Role values. A user is exactly one of the two.
const (
	RoleOwner  = "owner"
	RoleDriver = "driver"
)

// Location is a user's last reported position.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerProfile holds the vehicle an owner needs a driver for.
type OwnerProfile struct {
	CarModel  string `json:"car_model"`
	CarNumber string `json:"car_number"`
	CarColor  string `json:"car_color"`
	CarYear   int    `json:"car_year"`
}

// DriverProfile holds driver-specific state. Rating, TotalTrips and
// TotalEarnings are written only by the booking service on completion.
type DriverProfile struct {
	LicenseNumber   string   `json:"license_number"`
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills"`
	Habits          []string `json:"habits"`
	Verified        bool     `json:"verified"`
	HourlyRate      float64  `json:"hourly_rate"`
	Rating          float64  `json:"rating"`
	TotalTrips      int      `json:"total_trips"`
	TotalEarnings   float64  `json:"total_earnings"`
	Available       bool     `json:"available"`
}

// User is a single account. Exactly one of Owner / Driver is set,
// matching Role, so driver fields can never appear on an owner.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	PasswordHash string         `json:"-"`
	Role         string         `json:"role"`
	Active       bool           `json:"active"`
	Owner        *OwnerProfile  `json:"owner,omitempty"`
	Driver       *DriverProfile `json:"driver,omitempty"`
	Location     *Location      `json:"current_location,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RegisterRequest is the body for POST /users/register. Car is required
// for owners, DriverInfo for drivers.
type RegisterRequest struct {
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone"`
	Password   string        `json:"password"`
	Role       string        `json:"role"`
	Car        *OwnerProfile `json:"car,omitempty"`
	DriverInfo *DriverInfo   `json:"driver,omitempty"`
}

// DriverInfo is the driver section of a registration request.
type DriverInfo struct {
	LicenseNumber   string   `json:"license_number"`
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills"`
	Habits          []string `json:"habits"`
	HourlyRate      float64  `json:"hourly_rate"`
}

// LoginRequest is the body for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// LocationUpdate is the body for PUT /users/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AvailabilityUpdate is the body for PUT /users/availability.
type AvailabilityUpdate struct {
	Available bool `json:"available"`
}

// NearbyDriver is one row of GET /users/drivers/available.
type NearbyDriver struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills"`
	Verified        bool     `json:"verified"`
	HourlyRate      float64  `json:"hourly_rate"`
	Rating          float64  `json:"rating"`
	TotalTrips      int      `json:"total_trips"`
	DistanceKm      float64  `json:"distance_km"`
}
