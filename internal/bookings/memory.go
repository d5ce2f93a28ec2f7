package bookings

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same compare-and-swap
// transition semantics as the Postgres one. It backs tests and local
// runs without a database.
type MemoryStore struct {
	mu       sync.Mutex
	byCode   map[string]*Booking
	sequence []string // insertion order, for stable pending scans
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCode: make(map[string]*Booking)}
}

func (s *MemoryStore) Insert(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.byCode[b.Code] = &cp
	s.sequence = append(s.sequence, b.Code)
	return nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Booking
	for _, code := range s.sequence {
		if b := s.byCode[code]; b.Status == StatusPending {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*Booking, error) {
	return s.listWhere(func(b *Booking) bool { return b.OwnerID == ownerID })
}

func (s *MemoryStore) ListByDriver(_ context.Context, driverID string) ([]*Booking, error) {
	return s.listWhere(func(b *Booking) bool { return b.DriverID != nil && *b.DriverID == driverID })
}

func (s *MemoryStore) listWhere(keep func(*Booking) bool) ([]*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Booking
	for _, code := range s.sequence {
		if b := s.byCode[code]; keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (s *MemoryStore) Accept(_ context.Context, code, driverID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byCode[code]
	if !ok || b.Status != StatusPending {
		return false, nil
	}
	d := driverID
	b.DriverID = &d
	b.Status = StatusAccepted
	t := at
	b.AcceptedAt = &t
	return true, nil
}

func (s *MemoryStore) Deny(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byCode[code]
	if !ok || b.Status != StatusPending {
		return false, nil
	}
	b.Status = StatusDenied
	return true, nil
}

func (s *MemoryStore) Start(_ context.Context, code string, at time.Time, actualStart *LocationPoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byCode[code]
	if !ok || b.Status != StatusAccepted {
		return false, nil
	}
	b.Status = StatusInProgress
	b.OTPVerified = true
	t := at
	b.StartedAt = &t
	if actualStart != nil {
		cp := *actualStart
		b.ActualStart = &cp
	}
	return true, nil
}

func (s *MemoryStore) Complete(_ context.Context, code string, upd CompletionUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byCode[code]
	if !ok || b.Status != StatusInProgress {
		return false, nil
	}
	b.Status = StatusCompleted
	t := upd.CompletedAt
	b.CompletedAt = &t
	if upd.ActualEnd != nil {
		cp := *upd.ActualEnd
		b.ActualEnd = &cp
	}
	b.ActualDistanceKm = upd.ActualDistanceKm
	b.ActualDurationMin = upd.ActualDurationMin
	b.DriverRating = upd.Rating
	b.DriverReview = upd.Review
	return true, nil
}
