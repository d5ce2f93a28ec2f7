package bookings

import "time"

// Booking lifecycle states. DENIED, COMPLETED and CANCELLED are terminal.
// CANCELLED exists for wire compatibility; no transition produces it.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusDenied     = "denied"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// AllowedDurations is the whitelist of bookable trip lengths in hours.
var AllowedDurations = map[int]bool{2: true, 4: true, 6: true, 8: true, 12: true, 24: true}

// LocationPoint is a named coordinate.
type LocationPoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
}

// Booking is one trip request and its lifecycle. OTP fields are internal;
// projections decide when the code is shown.
type Booking struct {
	ID       string  `json:"id"`
	Code     string  `json:"booking_code"`
	OwnerID  string  `json:"owner_id"`
	DriverID *string `json:"driver_id,omitempty"`

	Pickup        LocationPoint `json:"pickup"`
	Destination   LocationPoint `json:"destination"`
	DurationHours int           `json:"duration_hours"`
	DistanceKm    float64       `json:"distance_km"`
	ETA           string        `json:"estimated_time"`

	BaseFare  float64 `json:"base_fare"`
	TotalFare float64 `json:"total_fare"`

	OTP            string    `json:"-"`
	OTPGeneratedAt time.Time `json:"-"`
	OTPVerified    bool      `json:"-"`

	Status string `json:"status"`

	RequestedAt time.Time  `json:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ActualStart       *LocationPoint `json:"actual_start_location,omitempty"`
	ActualEnd         *LocationPoint `json:"actual_end_location,omitempty"`
	ActualDistanceKm  *float64       `json:"actual_distance_km,omitempty"`
	ActualDurationMin *int           `json:"actual_duration_minutes,omitempty"`

	DriverRating *int    `json:"driver_rating,omitempty"`
	DriverReview *string `json:"driver_review,omitempty"`
}

// CreateRequest is the body for POST /bookings.
type CreateRequest struct {
	Pickup        LocationPoint `json:"pickup"`
	Destination   LocationPoint `json:"destination"`
	DurationHours int           `json:"duration_hours"`
}

// VerifyOTPRequest is the body for POST /bookings/{code}/verify-otp.
type VerifyOTPRequest struct {
	OTP             string         `json:"otp"`
	CurrentLocation *LocationPoint `json:"current_location,omitempty"`
}

// CompleteRequest is the body for PUT /bookings/{code}/complete.
type CompleteRequest struct {
	EndLocation      *LocationPoint `json:"end_location,omitempty"`
	ActualDistanceKm *float64       `json:"actual_distance,omitempty"`
	Rating           *int           `json:"rating,omitempty"`
	Review           string         `json:"review,omitempty"`
}

// View is the booking projection returned to callers. OTP is populated
// only while the booking is pending or accepted.
type View struct {
	ID            string        `json:"id"`
	Code          string        `json:"booking_code"`
	OwnerName     string        `json:"owner_name"`
	OwnerPhone    string        `json:"owner_phone"`
	DriverName    string        `json:"driver_name,omitempty"`
	DriverPhone   string        `json:"driver_phone,omitempty"`
	Pickup        LocationPoint `json:"pickup"`
	Destination   LocationPoint `json:"destination"`
	DurationHours int           `json:"duration_hours"`
	DistanceKm    float64       `json:"distance_km"`
	ETA           string        `json:"estimated_time"`
	TotalFare     float64       `json:"total_fare"`
	Status        string        `json:"status"`
	OTP           string        `json:"otp,omitempty"`
	RequestedAt   time.Time     `json:"requested_at"`
}

// NearbyBooking is one row of GET /bookings/nearby.
type NearbyBooking struct {
	ID            string        `json:"id"`
	Code          string        `json:"booking_code"`
	OwnerName     string        `json:"owner_name"`
	OwnerPhone    string        `json:"owner_phone"`
	Pickup        LocationPoint `json:"pickup"`
	Destination   LocationPoint `json:"destination"`
	DurationHours int           `json:"duration_hours"`
	Fare          float64       `json:"fare"`
	DistanceKm    float64       `json:"distance_from_driver"`
	RequestedAt   time.Time     `json:"requested_at"`
}
