package bookings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"driveu-backend/internal/otp"
	"driveu-backend/internal/users"
	"driveu-backend/pkg/jwt"
)

// Handler exposes booking HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the booking service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.With(jwt.RequireRole(jwt.RoleOwner)).Post("/", h.Create)
	r.Get("/history", h.History)
	r.Get("/{code}/status", h.Status)

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireRole(jwt.RoleDriver))
		r.Get("/nearby", h.Nearby)
		r.Put("/{code}/accept", h.Accept)
		r.Put("/{code}/deny", h.Deny)
		r.Post("/{code}/verify-otp", h.VerifyOTP)
		r.Put("/{code}/complete", h.Complete)
	})

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	v, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	radius, _ := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64)

	list, err := h.svc.NearbyForDriver(r.Context(), claims.UserID, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	v, err := h.svc.Accept(r.Context(), claims.UserID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	if err := h.svc.Deny(r.Context(), claims.UserID, chi.URLParam(r, "code")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "booking denied, owner will be notified"})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	v, err := h.svc.VerifyOTPAndStart(r.Context(), claims.UserID, chi.URLParam(r, "code"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	// An empty body is fine, everything in it is optional; anything else
	// must parse.
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	v, err := h.svc.Complete(r.Context(), claims.UserID, chi.URLParam(r, "code"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Status(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())

	list, err := h.svc.History(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrMismatch),
		errors.Is(err, users.ErrLocationRequired),
		errors.Is(err, users.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, users.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
