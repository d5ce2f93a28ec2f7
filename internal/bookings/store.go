package bookings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompletionUpdate carries the fields written when a trip finishes.
type CompletionUpdate struct {
	CompletedAt       time.Time
	ActualEnd         *LocationPoint
	ActualDistanceKm  *float64
	ActualDurationMin *int
	Rating            *int
	Review            *string
}

// Store persists bookings. Transition methods are compare-and-swap on the
// status column: they return false without writing when the booking is no
// longer in the expected state, which is how concurrent accepts are
// serialised.
type Store interface {
	Insert(ctx context.Context, b *Booking) error
	GetByCode(ctx context.Context, code string) (*Booking, error)
	ListPending(ctx context.Context) ([]*Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Booking, error)
	ListByDriver(ctx context.Context, driverID string) ([]*Booking, error)

	Accept(ctx context.Context, code, driverID string, at time.Time) (bool, error)
	Deny(ctx context.Context, code string) (bool, error)
	Start(ctx context.Context, code string, at time.Time, actualStart *LocationPoint) (bool, error)
	Complete(ctx context.Context, code string, upd CompletionUpdate) (bool, error)
}

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wires a Store to the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const bookingColumns = `id,code,owner_id,driver_id,
	pickup_lat,pickup_lng,pickup_name,pickup_address,
	dest_lat,dest_lng,dest_name,dest_address,
	duration_hours,distance_km,eta,base_fare,total_fare,
	otp,otp_generated_at,otp_verified,status,
	requested_at,accepted_at,started_at,completed_at,
	actual_start_lat,actual_start_lng,actual_start_name,
	actual_end_lat,actual_end_lng,actual_end_name,
	actual_distance_km,actual_duration_minutes,
	driver_rating,driver_review`

func (s *PostgresStore) Insert(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO bookings (id,code,owner_id,
			pickup_lat,pickup_lng,pickup_name,pickup_address,
			dest_lat,dest_lng,dest_name,dest_address,
			duration_hours,distance_km,eta,base_fare,total_fare,
			otp,otp_generated_at,status,requested_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		b.ID, b.Code, b.OwnerID,
		b.Pickup.Lat, b.Pickup.Lng, b.Pickup.Name, b.Pickup.Address,
		b.Destination.Lat, b.Destination.Lng, b.Destination.Name, b.Destination.Address,
		b.DurationHours, b.DistanceKm, b.ETA, b.BaseFare, b.TotalFare,
		b.OTP, b.OTPGeneratedAt, b.Status, b.RequestedAt)
	return err
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Booking, error) {
	rows, err := s.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code=$1`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanBooking(rows)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*Booking, error) {
	return s.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status=$1 ORDER BY requested_at`, StatusPending)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string) ([]*Booking, error) {
	return s.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE owner_id=$1 ORDER BY requested_at DESC`, ownerID)
}

func (s *PostgresStore) ListByDriver(ctx context.Context, driverID string) ([]*Booking, error) {
	return s.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE driver_id=$1 ORDER BY requested_at DESC`, driverID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Accept claims a pending booking for a driver. The status predicate in
// the WHERE clause is the write-time guard; exactly one of two racing
// accepts sees RowsAffected()==1.
func (s *PostgresStore) Accept(ctx context.Context, code, driverID string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET driver_id=$1, status=$2, accepted_at=$3
		 WHERE code=$4 AND status=$5`,
		driverID, StatusAccepted, at, code, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Deny(ctx context.Context, code string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET status=$1 WHERE code=$2 AND status=$3`,
		StatusDenied, code, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Start(ctx context.Context, code string, at time.Time, actualStart *LocationPoint) (bool, error) {
	var lat, lng *float64
	var name *string
	if actualStart != nil {
		lat, lng, name = &actualStart.Lat, &actualStart.Lng, &actualStart.Name
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET status=$1, otp_verified=TRUE, started_at=$2,
			actual_start_lat=$3, actual_start_lng=$4, actual_start_name=$5
		 WHERE code=$6 AND status=$7`,
		StatusInProgress, at, lat, lng, name, code, StatusAccepted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Complete(ctx context.Context, code string, upd CompletionUpdate) (bool, error) {
	var lat, lng *float64
	var name *string
	if upd.ActualEnd != nil {
		lat, lng, name = &upd.ActualEnd.Lat, &upd.ActualEnd.Lng, &upd.ActualEnd.Name
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE bookings SET status=$1, completed_at=$2,
			actual_end_lat=$3, actual_end_lng=$4, actual_end_name=$5,
			actual_distance_km=$6, actual_duration_minutes=$7,
			driver_rating=$8, driver_review=$9
		 WHERE code=$10 AND status=$11`,
		StatusCompleted, upd.CompletedAt, lat, lng, name,
		upd.ActualDistanceKm, upd.ActualDurationMin,
		upd.Rating, upd.Review, code, StatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanBooking(rows pgx.Rows) (*Booking, error) {
	var (
		b Booking

		pickupAddr, destAddr *string

		otpGenerated *time.Time

		startLat, startLng *float64
		startName          *string
		endLat, endLng     *float64
		endName            *string
	)
	err := rows.Scan(&b.ID, &b.Code, &b.OwnerID, &b.DriverID,
		&b.Pickup.Lat, &b.Pickup.Lng, &b.Pickup.Name, &pickupAddr,
		&b.Destination.Lat, &b.Destination.Lng, &b.Destination.Name, &destAddr,
		&b.DurationHours, &b.DistanceKm, &b.ETA, &b.BaseFare, &b.TotalFare,
		&b.OTP, &otpGenerated, &b.OTPVerified, &b.Status,
		&b.RequestedAt, &b.AcceptedAt, &b.StartedAt, &b.CompletedAt,
		&startLat, &startLng, &startName,
		&endLat, &endLng, &endName,
		&b.ActualDistanceKm, &b.ActualDurationMin,
		&b.DriverRating, &b.DriverReview)
	if err != nil {
		return nil, err
	}

	if pickupAddr != nil {
		b.Pickup.Address = *pickupAddr
	}
	if destAddr != nil {
		b.Destination.Address = *destAddr
	}
	if otpGenerated != nil {
		b.OTPGeneratedAt = *otpGenerated
	}
	if startLat != nil && startLng != nil {
		b.ActualStart = &LocationPoint{Lat: *startLat, Lng: *startLng}
		if startName != nil {
			b.ActualStart.Name = *startName
		}
	}
	if endLat != nil && endLng != nil {
		b.ActualEnd = &LocationPoint{Lat: *endLat, Lng: *endLng}
		if endName != nil {
			b.ActualEnd.Name = *endName
		}
	}
	return &b, nil
}
