package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"driveu-backend/internal/config"
	"driveu-backend/internal/otp"
	"driveu-backend/internal/users"
)

func testSettings() config.Settings {
	return config.Settings{
		OTPLength:       4,
		OTPTTL:          10 * time.Minute,
		BaseHourlyRate:  150,
		AvgSpeedKmh:     30,
		DefaultRadiusKm: 5.0,
		MinRadiusKm:     0.1,
		MaxRadiusKm:     50.0,
	}
}

// fakeUsers implements users.Store in memory.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*users.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*users.User)}
}

func (f *fakeUsers) Insert(_ context.Context, u *users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) EmailExists(_ context.Context, _ string) (bool, error) { return false, nil }
func (f *fakeUsers) PhoneExists(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeUsers) UpdateLocation(_ context.Context, id string, loc users.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return users.ErrNotFound
	}
	u.Location = &loc
	return nil
}

func (f *fakeUsers) SetAvailability(_ context.Context, id string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Driver == nil {
		return users.ErrNotFound
	}
	u.Driver.Available = available
	return nil
}

func (f *fakeUsers) ListActiveDrivers(_ context.Context) ([]*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*users.User
	for _, u := range f.byID {
		if u.Role == users.RoleDriver && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) UpdateDriverStats(_ context.Context, id string, rating float64, trips int, earnings float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Driver == nil {
		return users.ErrNotFound
	}
	u.Driver.Rating = rating
	u.Driver.TotalTrips = trips
	u.Driver.TotalEarnings = earnings
	return nil
}

func newTestService() (*Service, *MemoryStore, *fakeUsers) {
	store := NewMemoryStore()
	us := newFakeUsers()
	svc := NewService(store, us, nil, nil, nil, testSettings())
	return svc, store, us
}

func addOwner(us *fakeUsers, id string) *users.User {
	u := &users.User{
		ID: id, Name: "Rajesh Kumar", Email: id + "@example.com", Phone: "+919876543210",
		Role: users.RoleOwner, Active: true,
		Owner: &users.OwnerProfile{CarModel: "Toyota Camry", CarNumber: "DL-01-AB-1234", CarColor: "White", CarYear: 2020},
	}
	us.byID[id] = u
	return u
}

func addDriver(us *fakeUsers, id string, lat, lng float64) *users.User {
	u := &users.User{
		ID: id, Name: "Suresh Singh", Email: id + "@example.com", Phone: "+919812345678",
		Role: users.RoleDriver, Active: true,
		Driver: &users.DriverProfile{
			LicenseNumber: "DL-123456", ExperienceYears: 5,
			HourlyRate: 150, Available: true,
		},
		Location: &users.Location{Lat: lat, Lng: lng, UpdatedAt: time.Now()},
	}
	us.byID[id] = u
	return u
}

func delhiGurgaonRequest() CreateRequest {
	return CreateRequest{
		Pickup:        LocationPoint{Lat: 28.6129, Lng: 77.2295, Name: "India Gate, Delhi"},
		Destination:   LocationPoint{Lat: 28.4951, Lng: 77.0890, Name: "Cyber Hub, Gurgaon"},
		DurationHours: 4,
	}
}

func TestCreateFareForAllDurations(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	ctx := context.Background()

	for _, hours := range []int{2, 4, 6, 8, 12, 24} {
		req := delhiGurgaonRequest()
		req.DurationHours = hours
		v, err := svc.Create(ctx, "o1", req)
		if err != nil {
			t.Fatalf("Create(%d hours): %v", hours, err)
		}
		if want := 150 * float64(hours); v.TotalFare != want {
			t.Errorf("duration %d: fare = %v, want %v", hours, v.TotalFare, want)
		}
	}
}

func TestCreateRejectsInvalidDuration(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")

	req := delhiGurgaonRequest()
	req.DurationHours = 5
	_, err := svc.Create(context.Background(), "o1", req)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create(5 hours) err = %v, want ErrValidation", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != StatusPending {
		t.Fatalf("status = %s, want pending", v.Status)
	}
	if v.TotalFare != 600 {
		t.Fatalf("fare = %v, want 600", v.TotalFare)
	}
	if len(v.OTP) != 4 {
		t.Fatalf("otp = %q, want 4 digits", v.OTP)
	}

	// The driver at (28.60, 77.20) is within 5 km of the pickup.
	nearby, err := svc.NearbyForDriver(ctx, "d1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(nearby) != 1 || nearby[0].Code != v.Code {
		t.Fatalf("nearby = %+v, want the new booking", nearby)
	}
	if nearby[0].OwnerName != "Rajesh Kumar" {
		t.Errorf("owner name = %q", nearby[0].OwnerName)
	}

	accepted, err := svc.Accept(ctx, "d1", v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", accepted.Status)
	}
	if accepted.OTP != v.OTP {
		t.Fatalf("accepted view must still carry the OTP")
	}

	started, err := svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: v.OTP})
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != StatusInProgress {
		t.Fatalf("status = %s, want in_progress", started.Status)
	}
	if started.OTP != "" {
		t.Fatalf("OTP must be redacted once the trip starts")
	}

	// A second verify finds the booking no longer accepted.
	_, err = svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: v.OTP})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second verify err = %v, want ErrInvalidTransition", err)
	}

	rating := 4
	done, err := svc.Complete(ctx, "d1", v.Code, CompleteRequest{Rating: &rating})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}

	d, _ := us.GetByID(ctx, "d1")
	if d.Driver.TotalTrips != 1 {
		t.Errorf("trips = %d, want 1", d.Driver.TotalTrips)
	}
	if d.Driver.TotalEarnings != 600 {
		t.Errorf("earnings = %v, want 600", d.Driver.TotalEarnings)
	}
	if d.Driver.Rating != 4.0 {
		t.Errorf("rating = %v, want 4.0", d.Driver.Rating)
	}
}

func TestVerifyOTPOnPendingFails(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}

	// IN_PROGRESS is only reachable through ACCEPTED.
	_, err = svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: v.OTP})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestAcceptUnknownCode(t *testing.T) {
	svc, _, us := newTestService()
	addDriver(us, "d1", 28.60, 77.20)

	_, err := svc.Accept(context.Background(), "d1", "BOOK-19700101000000-XXXX")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDoubleAcceptFails(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	addDriver(us, "d2", 28.61, 77.21)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}

	// Even the same driver cannot accept twice.
	if _, err := svc.Accept(ctx, "d1", v.Code); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("same-driver re-accept err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Accept(ctx, "d2", v.Code); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second-driver accept err = %v, want ErrInvalidTransition", err)
	}
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	svc, store, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	addDriver(us, "d2", 28.61, 77.21)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, driverID := range []string{"d1", "d2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = svc.Accept(ctx, id, v.Code)
		}(i, driverID)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidTransition):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d, losses = %d; want exactly one of each", wins, losses)
	}

	b, err := store.GetByCode(ctx, v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusAccepted || b.DriverID == nil {
		t.Fatalf("booking = %+v, want accepted with a driver", b)
	}
}

func TestDenyIsTerminal(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Deny(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, "d1", v.Code); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("accept after deny err = %v, want ErrInvalidTransition", err)
	}
}

func TestExpiredOTPReportedBeforeMismatch(t *testing.T) {
	svc, store, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	driverID := "d1"
	b := &Booking{
		ID: "b-1", Code: "BOOK-20240101120000-AB12", OwnerID: "o1", DriverID: &driverID,
		Pickup:        LocationPoint{Lat: 28.6129, Lng: 77.2295, Name: "India Gate"},
		Destination:   LocationPoint{Lat: 28.4951, Lng: 77.0890, Name: "Cyber Hub"},
		DurationHours: 4, TotalFare: 600, BaseFare: 150,
		OTP: "1234", OTPGeneratedAt: time.Now().Add(-11 * time.Minute),
		Status: StatusAccepted, RequestedAt: time.Now().Add(-12 * time.Minute),
	}
	if err := store.Insert(ctx, b); err != nil {
		t.Fatal(err)
	}

	// Correct code, but past the 10-minute window: Expired, not Mismatch.
	_, err := svc.VerifyOTPAndStart(ctx, "d1", b.Code, VerifyOTPRequest{OTP: "1234"})
	if !errors.Is(err, otp.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	// Failure must not mutate the booking.
	got, _ := store.GetByCode(ctx, b.Code)
	if got.Status != StatusAccepted || got.StartedAt != nil || got.OTPVerified {
		t.Fatalf("booking mutated on failed verify: %+v", got)
	}
}

func TestWrongOTPMismatch(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}

	wrong := "0000"
	if wrong == v.OTP {
		wrong = "0001"
	}
	_, err = svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: wrong})
	if !errors.Is(err, otp.ErrMismatch) {
		t.Fatalf("err = %v, want ErrMismatch", err)
	}
}

func TestRatingAverageUsesPostIncrementCount(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	d := addDriver(us, "d1", 28.60, 77.20)
	d.Driver.Rating = 4.0
	d.Driver.TotalTrips = 1
	d.Driver.TotalEarnings = 300
	ctx := context.Background()

	v := mustRunToInProgress(t, svc, "o1", "d1")

	rating := 5
	if _, err := svc.Complete(ctx, "d1", v.Code, CompleteRequest{Rating: &rating}); err != nil {
		t.Fatal(err)
	}

	got, _ := us.GetByID(ctx, "d1")
	if got.Driver.TotalTrips != 2 {
		t.Errorf("trips = %d, want 2", got.Driver.TotalTrips)
	}
	// round((4.0*1 + 5) / 2, 2) = 4.5
	if got.Driver.Rating != 4.5 {
		t.Errorf("rating = %v, want 4.5", got.Driver.Rating)
	}
	if got.Driver.TotalEarnings != 900 {
		t.Errorf("earnings = %v, want 900", got.Driver.TotalEarnings)
	}
}

func TestCompletionWithoutRatingStillCounts(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	d := addDriver(us, "d1", 28.60, 77.20)
	d.Driver.Rating = 4.0
	d.Driver.TotalTrips = 3
	ctx := context.Background()

	v := mustRunToInProgress(t, svc, "o1", "d1")

	if _, err := svc.Complete(ctx, "d1", v.Code, CompleteRequest{}); err != nil {
		t.Fatal(err)
	}

	got, _ := us.GetByID(ctx, "d1")
	if got.Driver.TotalTrips != 4 {
		t.Errorf("trips = %d, want 4", got.Driver.TotalTrips)
	}
	if got.Driver.Rating != 4.0 {
		t.Errorf("rating = %v, want unchanged 4.0", got.Driver.Rating)
	}
	if got.Driver.TotalEarnings != 600 {
		t.Errorf("earnings = %v, want 600", got.Driver.TotalEarnings)
	}
}

func TestCompleteRejectsOutOfRangeRating(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)

	v := mustRunToInProgress(t, svc, "o1", "d1")

	rating := 6
	_, err := svc.Complete(context.Background(), "d1", v.Code, CompleteRequest{Rating: &rating})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, "d1", v.Code, CompleteRequest{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete on pending err = %v, want ErrInvalidTransition", err)
	}
}

func TestNearbyRequiresDriverLocation(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	d := addDriver(us, "d1", 0, 0)
	d.Location = nil

	_, err := svc.NearbyForDriver(context.Background(), "d1", 0)
	if !errors.Is(err, users.ErrLocationRequired) {
		t.Fatalf("err = %v, want ErrLocationRequired", err)
	}
}

func TestNearbySortedByDistanceAndBounded(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.6129, 77.2295)
	ctx := context.Background()

	mk := func(lat, lng float64) string {
		req := delhiGurgaonRequest()
		req.Pickup = LocationPoint{Lat: lat, Lng: lng, Name: "pickup"}
		v, err := svc.Create(ctx, "o1", req)
		if err != nil {
			t.Fatal(err)
		}
		return v.Code
	}

	far := mk(28.65, 77.25)      // a few km out
	near := mk(28.6130, 77.2296) // essentially on top of the driver
	_ = mk(29.10, 77.80)         // well beyond 5 km

	got, err := svc.NearbyForDriver(ctx, "d1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bookings, want 2", len(got))
	}
	if got[0].Code != near || got[1].Code != far {
		t.Fatalf("order = %s, %s; want nearest first", got[0].Code, got[1].Code)
	}
}

func TestHistoryOrderAndOTPRedaction(t *testing.T) {
	svc, store, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	first, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	// Push the first booking into the past so ordering is deterministic.
	b, _ := store.GetByCode(ctx, first.Code)
	earlier := b.RequestedAt.Add(-time.Hour)
	store.mu.Lock()
	store.byCode[first.Code].RequestedAt = earlier
	store.mu.Unlock()

	second, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}

	// Run the second booking to completion.
	if _, err := svc.Accept(ctx, "d1", second.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyOTPAndStart(ctx, "d1", second.Code, VerifyOTPRequest{OTP: second.OTP}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, "d1", second.Code, CompleteRequest{}); err != nil {
		t.Fatal(err)
	}

	hist, err := svc.History(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Code != second.Code {
		t.Fatalf("newest first: got %s", hist[0].Code)
	}
	if hist[0].OTP != "" {
		t.Errorf("completed booking must not expose the OTP")
	}
	if hist[1].OTP == "" {
		t.Errorf("pending booking must expose the OTP")
	}

	// Driver history sees only their booking.
	dh, err := svc.History(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(dh) != 1 || dh[0].Code != second.Code {
		t.Fatalf("driver history = %+v", dh)
	}
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]map[string]string)}
}

func (f *fakeCache) CacheBooking(_ context.Context, code string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[code] = data
	return nil
}

func (f *fakeCache) GetCachedBooking(_ context.Context, code string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[code], nil
}

func TestStatusCacheAside(t *testing.T) {
	store := NewMemoryStore()
	us := newFakeUsers()
	cache := newFakeCache()
	svc := NewService(store, us, nil, cache, nil, testSettings())
	addOwner(us, "o1")
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Status(ctx, v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if got["status"] != StatusPending || got["total_fare"] != "600.00" {
		t.Fatalf("status projection = %v", got)
	}

	// A cold cache falls back to the store and repopulates.
	delete(cache.data, v.Code)
	got, err = svc.Status(ctx, v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if got["status"] != StatusPending {
		t.Fatalf("after miss: %v", got)
	}
	if _, ok := cache.data[v.Code]; !ok {
		t.Error("cache not repopulated after a miss")
	}

	if _, err := svc.Status(ctx, "BOOK-19700101000000-XXXX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code err = %v, want ErrNotFound", err)
	}
}

func TestStatusTracksLifecycle(t *testing.T) {
	store := NewMemoryStore()
	us := newFakeUsers()
	cache := newFakeCache()
	svc := NewService(store, us, nil, cache, nil, testSettings())
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	status := func(code string) string {
		t.Helper()
		data, err := svc.Status(ctx, code)
		if err != nil {
			t.Fatal(err)
		}
		return data["status"]
	}

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if got := status(v.Code); got != StatusPending {
		t.Fatalf("after create: %s", got)
	}

	if _, err := svc.Accept(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}
	if got := status(v.Code); got != StatusAccepted {
		t.Fatalf("after accept: %s", got)
	}

	if _, err := svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: v.OTP}); err != nil {
		t.Fatal(err)
	}
	if got := status(v.Code); got != StatusInProgress {
		t.Fatalf("after verify: %s", got)
	}

	if _, err := svc.Complete(ctx, "d1", v.Code, CompleteRequest{}); err != nil {
		t.Fatal(err)
	}
	if got := status(v.Code); got != StatusCompleted {
		t.Fatalf("after complete: %s", got)
	}

	// Deny is reflected too.
	w, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Deny(ctx, "d1", w.Code); err != nil {
		t.Fatal(err)
	}
	if got := status(w.Code); got != StatusDenied {
		t.Fatalf("after deny: %s", got)
	}
}

func TestVerifyOTPFormatFollowsConfiguredLength(t *testing.T) {
	svc, _, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	ctx := context.Background()

	v, err := svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"123", "12345", "12a4", ""} {
		if _, err := svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: bad}); !errors.Is(err, ErrValidation) {
			t.Errorf("otp %q: err = %v, want ErrValidation", bad, err)
		}
	}

	// A longer configured length generates and accepts longer codes.
	cfg := testSettings()
	cfg.OTPLength = 6
	store := NewMemoryStore()
	svc = NewService(store, us, nil, nil, nil, cfg)

	v, err = svc.Create(ctx, "o1", delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(v.OTP) != 6 {
		t.Fatalf("otp = %q, want 6 digits", v.OTP)
	}
	if _, err := svc.Accept(ctx, "d1", v.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyOTPAndStart(ctx, "d1", v.Code, VerifyOTPRequest{OTP: v.OTP}); err != nil {
		t.Fatal(err)
	}
}

// mustRunToInProgress drives a fresh booking to IN_PROGRESS.
func mustRunToInProgress(t *testing.T, svc *Service, ownerID, driverID string) *View {
	t.Helper()
	ctx := context.Background()

	v, err := svc.Create(ctx, ownerID, delhiGurgaonRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, driverID, v.Code); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyOTPAndStart(ctx, driverID, v.Code, VerifyOTPRequest{OTP: v.OTP}); err != nil {
		t.Fatal(err)
	}
	return v
}
