package bookings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"driveu-backend/pkg/jwt"
)

func newTestRouter(t *testing.T, svc *Service) http.Handler {
	t.Helper()
	if err := jwt.Init("test-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Use(jwt.OptionalAuth)
	r.Mount("/bookings", NewHandler(svc).Routes())
	return r
}

func TestCompleteHandlerBodyHandling(t *testing.T) {
	svc, store, us := newTestService()
	addOwner(us, "o1")
	addDriver(us, "d1", 28.60, 77.20)
	v := mustRunToInProgress(t, svc, "o1", "d1")

	router := newTestRouter(t, svc)
	token, err := jwt.Generate("d1", "d1@example.com", jwt.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}

	// A malformed body is rejected and the trip stays in progress.
	req := httptest.NewRequest(http.MethodPut, "/bookings/"+v.Code+"/complete", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d, want 400", rec.Code)
	}
	b, err := store.GetByCode(context.Background(), v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusInProgress {
		t.Fatalf("booking status = %s, want still in_progress", b.Status)
	}

	// An empty body is allowed: every completion field is optional.
	req = httptest.NewRequest(http.MethodPut, "/bookings/"+v.Code+"/complete", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body: status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	b, err = store.GetByCode(context.Background(), v.Code)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != StatusCompleted {
		t.Fatalf("booking status = %s, want completed", b.Status)
	}
}
