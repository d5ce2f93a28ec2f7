package events

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BookingRequestedEvent is published to booking.requested when an owner
// creates a booking.
type BookingRequestedEvent struct {
	BookingCode   string  `json:"booking_code"`
	OwnerID       string  `json:"owner_id"`
	Pickup        LatLng  `json:"pickup"`
	Destination   LatLng  `json:"destination"`
	DurationHours int     `json:"duration_hours"`
	TotalFare     float64 `json:"total_fare"`
	RequestedAt   string  `json:"requested_at"`
}

// BookingAcceptedEvent is published to booking.accepted when a driver
// claims a pending booking.
type BookingAcceptedEvent struct {
	BookingCode string `json:"booking_code"`
	OwnerID     string `json:"owner_id"`
	DriverID    string `json:"driver_id"`
	AcceptedAt  string `json:"accepted_at"`
}

// TripCompletedEvent is published to trip.completed when a driver ends
// an in-progress trip.
type TripCompletedEvent struct {
	BookingCode     string  `json:"booking_code"`
	OwnerID         string  `json:"owner_id"`
	DriverID        string  `json:"driver_id"`
	TotalFare       float64 `json:"total_fare"`
	DurationMinutes int     `json:"duration_minutes"`
	CompletedAt     string  `json:"completed_at"`
}
