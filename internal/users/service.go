package users

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"driveu-backend/internal/config"
	"driveu-backend/internal/geo"
	"driveu-backend/pkg/jwt"
	"driveu-backend/pkg/validation"
)

// LocationMirror is the write-through copy of driver positions (Redis
// GEO set in production).
type LocationMirror interface {
	SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	RemoveDriverLocation(ctx context.Context, driverID string) error
}

// Tracker is notified whenever a driver reports a new position, so live
// watchers of an in-progress trip can be updated.
type Tracker interface {
	DriverMoved(ctx context.Context, driverID string, lat, lng float64)
}

// Service contains account and discovery business logic.
type Service struct {
	store   Store
	mirror  LocationMirror
	tracker Tracker
	cfg     config.Settings
}

// NewService creates a user service. mirror may be nil when Redis is
// unavailable.
func NewService(store Store, mirror LocationMirror, cfg config.Settings) *Service {
	return &Service{store: store, mirror: mirror, cfg: cfg}
}

// SetTracker attaches the live-tracking hook. Called once during wiring;
// kept out of the constructor because the booking service that implements
// it is constructed after this one.
func (s *Service) SetTracker(t Tracker) { s.tracker = t }

// Register creates an owner or driver account and returns a JWT.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	if exists, err := s.store.EmailExists(ctx, req.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEmailTaken
	}
	if exists, err := s.store.PhoneExists(ctx, req.Phone); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrPhoneTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	switch req.Role {
	case RoleOwner:
		car := *req.Car
		u.Owner = &car
	case RoleDriver:
		rate := req.DriverInfo.HourlyRate
		if rate <= 0 {
			rate = s.cfg.BaseHourlyRate
		}
		u.Driver = &DriverProfile{
			LicenseNumber:   req.DriverInfo.LicenseNumber,
			ExperienceYears: req.DriverInfo.ExperienceYears,
			Skills:          req.DriverInfo.Skills,
			Habits:          req.DriverInfo.Habits,
			HourlyRate:      rate,
			Available:       true,
		}
	}

	if err := s.store.Insert(ctx, u); err != nil {
		return nil, err
	}

	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}

// Login authenticates a user and returns a JWT.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}

// GetByID fetches a single user.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateLocation records a user's current position. Driver positions are
// additionally mirrored into the GEO set and pushed to trip watchers.
func (s *Service) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	if !validation.ValidateCoordinates(lat, lng) {
		return fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}

	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	loc := Location{Lat: lat, Lng: lng, UpdatedAt: time.Now()}
	if err := s.store.UpdateLocation(ctx, userID, loc); err != nil {
		return err
	}

	if u.Role == RoleDriver {
		if s.mirror != nil {
			if err := s.mirror.SetDriverLocation(ctx, userID, lat, lng); err != nil {
				log.Printf("[users] location mirror failed for %s: %v", userID, err)
			}
		}
		if s.tracker != nil {
			s.tracker.DriverMoved(ctx, userID, lat, lng)
		}
	}
	return nil
}

// SetAvailability toggles a driver's availability flag. Unavailable
// drivers drop out of the GEO mirror so they stop appearing live.
func (s *Service) SetAvailability(ctx context.Context, driverID string, available bool) error {
	if err := s.store.SetAvailability(ctx, driverID, available); err != nil {
		return err
	}
	if s.mirror == nil {
		return nil
	}
	if available {
		if u, err := s.store.GetByID(ctx, driverID); err == nil && u.Location != nil {
			if err := s.mirror.SetDriverLocation(ctx, driverID, u.Location.Lat, u.Location.Lng); err != nil {
				log.Printf("[users] location mirror failed for %s: %v", driverID, err)
			}
		}
	} else {
		if err := s.mirror.RemoveDriverLocation(ctx, driverID); err != nil {
			log.Printf("[users] location mirror removal failed for %s: %v", driverID, err)
		}
	}
	return nil
}

// AvailableDrivers returns active, available, positioned drivers within
// radiusKm of the given center, closest first. The scan is linear over
// the driver set; fine at this scale.
func (s *Service) AvailableDrivers(ctx context.Context, centerLat, centerLng, radiusKm float64) ([]NearbyDriver, error) {
	if !validation.ValidateCoordinates(centerLat, centerLng) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	radiusKm = s.cfg.ClampRadius(radiusKm)

	drivers, err := s.store.ListActiveDrivers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyDriver, 0, len(drivers))
	for _, d := range drivers {
		if d.Driver == nil || !d.Driver.Available || d.Location == nil {
			continue
		}
		dist := geo.Distance(centerLat, centerLng, d.Location.Lat, d.Location.Lng)
		if dist > radiusKm {
			continue
		}
		out = append(out, NearbyDriver{
			ID:              d.ID,
			Name:            d.Name,
			Phone:           d.Phone,
			ExperienceYears: d.Driver.ExperienceYears,
			Skills:          d.Driver.Skills,
			Verified:        d.Driver.Verified,
			HourlyRate:      d.Driver.HourlyRate,
			Rating:          d.Driver.Rating,
			TotalTrips:      d.Driver.TotalTrips,
			DistanceKm:      round2(dist),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func validateRegister(req RegisterRequest) error {
	if !validation.ValidateName(req.Name) {
		return fmt.Errorf("%w: name", ErrValidation)
	}
	if !validation.ValidateEmail(req.Email) {
		return fmt.Errorf("%w: email", ErrValidation)
	}
	if !validation.ValidatePhone(req.Phone) {
		return fmt.Errorf("%w: phone", ErrValidation)
	}
	if !validation.ValidatePassword(req.Password) {
		return fmt.Errorf("%w: password must be 6-100 characters", ErrValidation)
	}
	switch req.Role {
	case RoleOwner:
		if req.Car == nil || req.Car.CarModel == "" {
			return fmt.Errorf("%w: owner registration requires car details", ErrValidation)
		}
	case RoleDriver:
		if req.DriverInfo == nil || req.DriverInfo.LicenseNumber == "" {
			return fmt.Errorf("%w: driver registration requires a license number", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: role must be owner or driver", ErrValidation)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
