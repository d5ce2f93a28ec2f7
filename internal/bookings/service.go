package bookings

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"driveu-backend/internal/config"
	"driveu-backend/internal/events"
	"driveu-backend/internal/geo"
	"driveu-backend/internal/otp"
	"driveu-backend/internal/users"
	"driveu-backend/pkg/kafka"
	"driveu-backend/pkg/validation"
)

// Publisher sends domain events. Satisfied by pkg/kafka.Client.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Cache stores booking projections for cheap reads. Satisfied by
// pkg/redis.Client.
type Cache interface {
	CacheBooking(ctx context.Context, code string, data map[string]string) error
	GetCachedBooking(ctx context.Context, code string) (map[string]string, error)
}

// LocationBroadcaster pushes live driver positions to trip watchers.
// Satisfied by tracking.Hub.
type LocationBroadcaster interface {
	BroadcastLocation(code string, lat, lng float64)
}

// Service is the booking lifecycle engine. It is the only component that
// mutates booking state; discovery reads are derived live from the store.
type Service struct {
	store     Store
	users     users.Store
	publisher Publisher
	cache     Cache
	hub       LocationBroadcaster
	cfg       config.Settings
}

// NewService creates the engine. publisher, cache and hub may be nil;
// the lifecycle itself never depends on them.
func NewService(store Store, userStore users.Store, pub Publisher, cache Cache, hub LocationBroadcaster, cfg config.Settings) *Service {
	return &Service{store: store, users: userStore, publisher: pub, cache: cache, hub: hub, cfg: cfg}
}

// Create validates and persists a new PENDING booking for an owner. The
// returned projection carries the OTP; the owner hands it to the driver
// at pickup.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (*View, error) {
	if !AllowedDurations[req.DurationHours] {
		return nil, fmt.Errorf("%w: duration_hours must be one of 2, 4, 6, 8, 12, 24", ErrValidation)
	}
	if !validation.ValidateCoordinates(req.Pickup.Lat, req.Pickup.Lng) ||
		!validation.ValidateCoordinates(req.Destination.Lat, req.Destination.Lng) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	distance := geo.Distance(req.Pickup.Lat, req.Pickup.Lng, req.Destination.Lat, req.Destination.Lng)
	_, eta := geo.ETA(distance, s.cfg.AvgSpeedKmh)

	b := &Booking{
		ID:             uuid.New().String(),
		Code:           otp.NewBookingCode(now),
		OwnerID:        ownerID,
		Pickup:         req.Pickup,
		Destination:    req.Destination,
		DurationHours:  req.DurationHours,
		DistanceKm:     round2(distance),
		ETA:            eta,
		BaseFare:       s.cfg.BaseHourlyRate,
		TotalFare:      s.cfg.BaseHourlyRate * float64(req.DurationHours),
		OTP:            otp.Generate(s.cfg.OTPLength),
		OTPGeneratedAt: now,
		Status:         StatusPending,
		RequestedAt:    now,
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}

	s.publish(kafka.TopicBookingRequested, b.Code, events.BookingRequestedEvent{
		BookingCode:   b.Code,
		OwnerID:       ownerID,
		Pickup:        events.LatLng{Lat: b.Pickup.Lat, Lng: b.Pickup.Lng},
		Destination:   events.LatLng{Lat: b.Destination.Lat, Lng: b.Destination.Lng},
		DurationHours: b.DurationHours,
		TotalFare:     b.TotalFare,
		RequestedAt:   now.Format(time.RFC3339),
	})
	s.cacheProjection(ctx, b)

	return s.view(b, owner, nil), nil
}

// NearbyForDriver scans PENDING bookings and keeps those whose pickup is
// within radiusKm of the driver, closest first.
func (s *Service) NearbyForDriver(ctx context.Context, driverID string, radiusKm float64) ([]NearbyBooking, error) {
	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.Location == nil {
		return nil, users.ErrLocationRequired
	}
	radiusKm = s.cfg.ClampRadius(radiusKm)

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyBooking, 0, len(pending))
	for _, b := range pending {
		dist := geo.Distance(driver.Location.Lat, driver.Location.Lng, b.Pickup.Lat, b.Pickup.Lng)
		if dist > radiusKm {
			continue
		}
		owner, err := s.users.GetByID(ctx, b.OwnerID)
		if err != nil {
			return nil, err
		}
		out = append(out, NearbyBooking{
			ID:            b.ID,
			Code:          b.Code,
			OwnerName:     owner.Name,
			OwnerPhone:    owner.Phone,
			Pickup:        b.Pickup,
			Destination:   b.Destination,
			DurationHours: b.DurationHours,
			Fare:          b.TotalFare,
			DistanceKm:    round2(dist),
			RequestedAt:   b.RequestedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

// Accept claims a pending booking for a driver. Exactly one of two
// concurrent accepts wins; the loser gets ErrInvalidTransition.
func (s *Service) Accept(ctx context.Context, driverID, code string) (*View, error) {
	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusPending {
		return nil, fmt.Errorf("%w: booking is already %s", ErrInvalidTransition, b.Status)
	}

	now := time.Now()
	ok, err := s.store.Accept(ctx, code, driverID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: someone else moved it out of PENDING first.
		return nil, fmt.Errorf("%w: booking is no longer pending", ErrInvalidTransition)
	}

	b, err = s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.publish(kafka.TopicBookingAccepted, code, events.BookingAcceptedEvent{
		BookingCode: code,
		OwnerID:     b.OwnerID,
		DriverID:    driverID,
		AcceptedAt:  now.Format(time.RFC3339),
	})
	s.cacheProjection(ctx, b)

	return s.loadView(ctx, b)
}

// Deny refuses a pending booking. Terminal; no reassignment happens.
func (s *Service) Deny(ctx context.Context, driverID, code string) error {
	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		return fmt.Errorf("%w: booking is already %s", ErrInvalidTransition, b.Status)
	}

	ok, err := s.store.Deny(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: booking is no longer pending", ErrInvalidTransition)
	}

	b.Status = StatusDenied
	s.cacheProjection(ctx, b)
	log.Printf("[bookings] %s denied by driver %s", code, driverID)
	return nil
}

// VerifyOTPAndStart checks the OTP the owner handed the driver and, on
// success, moves the booking to IN_PROGRESS. A failed check mutates
// nothing; expiry is reported over mismatch.
func (s *Service) VerifyOTPAndStart(ctx context.Context, driverID, code string, req VerifyOTPRequest) (*View, error) {
	if !validation.ValidateOTP(req.OTP, s.cfg.OTPLength) {
		return nil, fmt.Errorf("%w: otp must be exactly %d digits", ErrValidation, s.cfg.OTPLength)
	}

	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusAccepted {
		return nil, fmt.Errorf("%w: booking must be accepted first", ErrInvalidTransition)
	}

	if err := otp.Verify(req.OTP, b.OTP, b.OTPGeneratedAt, time.Now(), s.cfg.OTPTTL); err != nil {
		return nil, err
	}

	ok, err := s.store.Start(ctx, code, time.Now(), req.CurrentLocation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking is no longer accepted", ErrInvalidTransition)
	}

	b, err = s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cacheProjection(ctx, b)
	log.Printf("[bookings] %s started by driver %s", code, driverID)
	return s.loadView(ctx, b)
}

// Complete finishes an in-progress trip and finalises driver statistics.
// Trip count and earnings bump on every completion; the rating average
// moves only when a rating was supplied, with the post-increment count
// as denominator. Booking and driver rows are two separate writes.
func (s *Service) Complete(ctx context.Context, driverID, code string, req CompleteRequest) (*View, error) {
	if req.Rating != nil && !validation.ValidateRating(*req.Rating) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: booking is not in progress", ErrInvalidTransition)
	}

	now := time.Now()
	upd := CompletionUpdate{
		CompletedAt:      now,
		ActualEnd:        req.EndLocation,
		ActualDistanceKm: req.ActualDistanceKm,
		Rating:           req.Rating,
	}
	if b.StartedAt != nil {
		mins := int(now.Sub(*b.StartedAt).Minutes())
		upd.ActualDurationMin = &mins
	}
	if req.Review != "" {
		review := req.Review
		upd.Review = &review
	}

	ok, err := s.store.Complete(ctx, code, upd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking is no longer in progress", ErrInvalidTransition)
	}

	if b.DriverID != nil {
		if err := s.applyDriverStats(ctx, *b.DriverID, b.TotalFare, req.Rating); err != nil {
			// Booking row is already committed; stats stay behind until
			// the next completion. Accepted gap, surfaced in the log.
			log.Printf("[bookings] driver stats update failed for %s: %v", *b.DriverID, err)
		}
	}

	b, err = s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cacheProjection(ctx, b)

	durMin := 0
	if upd.ActualDurationMin != nil {
		durMin = *upd.ActualDurationMin
	}
	s.publish(kafka.TopicTripCompleted, code, events.TripCompletedEvent{
		BookingCode:     code,
		OwnerID:         b.OwnerID,
		DriverID:        driverID,
		TotalFare:       b.TotalFare,
		DurationMinutes: durMin,
		CompletedAt:     now.Format(time.RFC3339),
	})

	return s.loadView(ctx, b)
}

// Status returns a small status projection suitable for polling. It is
// served from the cache when a fresh projection is there, falling back
// to the store on a miss.
func (s *Service) Status(ctx context.Context, code string) (map[string]string, error) {
	if s.cache != nil {
		if data, err := s.cache.GetCachedBooking(ctx, code); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	b, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cacheProjection(ctx, b)
	return projection(b), nil
}

// History returns the caller's bookings, newest first. The OTP appears
// only while the booking is still pending or accepted.
func (s *Service) History(ctx context.Context, userID string) ([]View, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var list []*Booking
	if u.Role == users.RoleOwner {
		list, err = s.store.ListByOwner(ctx, userID)
	} else {
		list, err = s.store.ListByDriver(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(list))
	for _, b := range list {
		v, err := s.loadView(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// DriverMoved implements users.Tracker: a driver position update fans
// out to live watchers of that driver's in-progress booking.
func (s *Service) DriverMoved(ctx context.Context, driverID string, lat, lng float64) {
	if s.hub == nil {
		return
	}
	list, err := s.store.ListByDriver(ctx, driverID)
	if err != nil {
		return
	}
	for _, b := range list {
		if b.Status == StatusInProgress {
			s.hub.BroadcastLocation(b.Code, lat, lng)
		}
	}
}

func (s *Service) applyDriverStats(ctx context.Context, driverID string, fare float64, rating *int) error {
	d, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if d.Driver == nil {
		return fmt.Errorf("user %s is not a driver", driverID)
	}

	trips := d.Driver.TotalTrips + 1
	earnings := d.Driver.TotalEarnings + fare
	newRating := d.Driver.Rating
	if rating != nil {
		total := d.Driver.Rating*float64(trips-1) + float64(*rating)
		newRating = round2(total / float64(trips))
	}
	return s.users.UpdateDriverStats(ctx, driverID, newRating, trips, earnings)
}

// loadView resolves participant names for a booking projection.
func (s *Service) loadView(ctx context.Context, b *Booking) (*View, error) {
	owner, err := s.users.GetByID(ctx, b.OwnerID)
	if err != nil {
		return nil, err
	}
	var driver *users.User
	if b.DriverID != nil {
		if driver, err = s.users.GetByID(ctx, *b.DriverID); err != nil {
			return nil, err
		}
	}
	return s.view(b, owner, driver), nil
}

func (s *Service) view(b *Booking, owner, driver *users.User) *View {
	v := &View{
		ID:            b.ID,
		Code:          b.Code,
		OwnerName:     owner.Name,
		OwnerPhone:    owner.Phone,
		Pickup:        b.Pickup,
		Destination:   b.Destination,
		DurationHours: b.DurationHours,
		DistanceKm:    b.DistanceKm,
		ETA:           b.ETA,
		TotalFare:     b.TotalFare,
		Status:        b.Status,
		RequestedAt:   b.RequestedAt,
	}
	if driver != nil {
		v.DriverName = driver.Name
		v.DriverPhone = driver.Phone
	}
	// The OTP is secret once the trip has started or finished.
	if b.Status == StatusPending || b.Status == StatusAccepted {
		v.OTP = b.OTP
	}
	return v
}

func (s *Service) publish(topic, key string, value any) {
	if s.publisher == nil {
		return
	}
	go func() {
		if err := s.publisher.Publish(context.Background(), topic, key, value); err != nil {
			log.Printf("[bookings] failed to publish %s: %v", topic, err)
		}
	}()
}

func (s *Service) cacheProjection(ctx context.Context, b *Booking) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheBooking(ctx, b.Code, projection(b)); err != nil {
		log.Printf("[bookings] cache write failed for %s: %v", b.Code, err)
	}
}

func projection(b *Booking) map[string]string {
	data := map[string]string{
		"status":         b.Status,
		"owner_id":       b.OwnerID,
		"total_fare":     strconv.FormatFloat(b.TotalFare, 'f', 2, 64),
		"duration_hours": strconv.Itoa(b.DurationHours),
	}
	if b.DriverID != nil {
		data["driver_id"] = *b.DriverID
	}
	return data
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
