package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the identity store the services read and write through. The
// booking service uses the same interface to fetch participants and to
// finalise driver statistics.
type Store interface {
	Insert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	UpdateLocation(ctx context.Context, id string, loc Location) error
	SetAvailability(ctx context.Context, id string, available bool) error
	ListActiveDrivers(ctx context.Context) ([]*User, error)
	UpdateDriverStats(ctx context.Context, id string, rating float64, totalTrips int, totalEarnings float64) error
}

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wires a Store to the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id,name,email,phone,password_hash,role,is_active,
	car_model,car_number,car_color,car_year,
	license_number,experience_years,skills,habits,verified,hourly_rate,
	rating,total_trips,total_earnings,available,
	loc_lat,loc_lng,loc_updated_at,created_at`

func (s *PostgresStore) Insert(ctx context.Context, u *User) error {
	var (
		carModel, carNumber, carColor *string
		carYear                       *int

		license             *string
		experience          *int
		skills, habits      []string
		verified, available *bool
		hourlyRate          *float64
		rating, earnings    *float64
		trips               *int
	)
	if u.Owner != nil {
		carModel, carNumber, carColor = &u.Owner.CarModel, &u.Owner.CarNumber, &u.Owner.CarColor
		carYear = &u.Owner.CarYear
	}
	if u.Driver != nil {
		license = &u.Driver.LicenseNumber
		experience = &u.Driver.ExperienceYears
		skills, habits = u.Driver.Skills, u.Driver.Habits
		verified, available = &u.Driver.Verified, &u.Driver.Available
		hourlyRate = &u.Driver.HourlyRate
		rating, earnings = &u.Driver.Rating, &u.Driver.TotalEarnings
		trips = &u.Driver.TotalTrips
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id,name,email,phone,password_hash,role,is_active,
			car_model,car_number,car_color,car_year,
			license_number,experience_years,skills,habits,verified,hourly_rate,
			rating,total_trips,total_earnings,available)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.Active,
		carModel, carNumber, carColor, carYear,
		license, experience, skills, habits, verified, hourlyRate,
		rating, trips, earnings, available)
	return err
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*User, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanUser(rows)
}

func (s *PostgresStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)", email).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE phone=$1)", phone).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) UpdateLocation(ctx context.Context, id string, loc Location) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET loc_lat=$1, loc_lng=$2, loc_updated_at=$3 WHERE id=$4`,
		loc.Lat, loc.Lng, loc.UpdatedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET available=$1 WHERE id=$2 AND role=$3`,
		available, id, RoleDriver)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActiveDrivers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role=$1 AND is_active ORDER BY created_at`,
		RoleDriver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDriverStats(ctx context.Context, id string, rating float64, totalTrips int, totalEarnings float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET rating=$1, total_trips=$2, total_earnings=$3 WHERE id=$4 AND role=$5`,
		rating, totalTrips, totalEarnings, id, RoleDriver)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(rows pgx.Rows) (*User, error) {
	var (
		u User

		carModel, carNumber, carColor *string
		carYear                       *int

		license             *string
		experience, trips   *int
		skills, habits      []string
		verified, available *bool
		hourlyRate          *float64
		rating, earnings    *float64

		locLat, locLng *float64
		locUpdated     *time.Time
	)
	err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.Active,
		&carModel, &carNumber, &carColor, &carYear,
		&license, &experience, &skills, &habits, &verified, &hourlyRate,
		&rating, &trips, &earnings, &available,
		&locLat, &locLng, &locUpdated, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if u.Role == RoleOwner && carModel != nil {
		u.Owner = &OwnerProfile{
			CarModel:  *carModel,
			CarNumber: deref(carNumber),
			CarColor:  deref(carColor),
			CarYear:   derefInt(carYear),
		}
	}
	if u.Role == RoleDriver && license != nil {
		u.Driver = &DriverProfile{
			LicenseNumber:   *license,
			ExperienceYears: derefInt(experience),
			Skills:          skills,
			Habits:          habits,
			Verified:        verified != nil && *verified,
			HourlyRate:      derefFloat(hourlyRate),
			Rating:          derefFloat(rating),
			TotalTrips:      derefInt(trips),
			TotalEarnings:   derefFloat(earnings),
			Available:       available != nil && *available,
		}
	}
	if locLat != nil && locLng != nil {
		loc := Location{Lat: *locLat, Lng: *locLng}
		if locUpdated != nil {
			loc.UpdatedAt = *locUpdated
		}
		u.Location = &loc
	}
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
