package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/handlers"
	"github.com/parkpass/parkpass-reservations/internal/payments"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/internal/service"
	"github.com/parkpass/parkpass-reservations/pkg/auth"
)

const testSecret = "test-secret"

// ---------- Mocks ----------

type mockReservationService struct {
	created    *domain.Reservation
	createErr  error
	getRes     *domain.Reservation
	getErr     error
	cancelled  *domain.Reservation
	cancelErr  error
	lastActor  domain.Actor
	lastCreate *service.CreateReservationReq
}

func (m *mockReservationService) Create(_ context.Context, actor domain.Actor, req *service.CreateReservationReq) (*domain.Reservation, error) {
	m.lastActor = actor
	m.lastCreate = req
	return m.created, m.createErr
}

func (m *mockReservationService) Get(_ context.Context, actor domain.Actor, _ uuid.UUID) (*domain.Reservation, error) {
	m.lastActor = actor
	return m.getRes, m.getErr
}

func (m *mockReservationService) List(_ context.Context, _ domain.Actor, _, _ int, _ *domain.ReservationStatus) ([]domain.Reservation, error) {
	if m.getRes == nil {
		return nil, nil
	}
	return []domain.Reservation{*m.getRes}, nil
}

func (m *mockReservationService) Update(_ context.Context, _ uuid.UUID, _ service.ReservationPatch) (*domain.Reservation, error) {
	return m.getRes, m.getErr
}

func (m *mockReservationService) Cancel(_ context.Context, actor domain.Actor, _ uuid.UUID) (*domain.Reservation, error) {
	m.lastActor = actor
	return m.cancelled, m.cancelErr
}

type mockCheckService struct {
	res       *domain.Reservation
	event     *domain.CheckEvent
	err       error
	lastToken string
	lastKind  domain.CheckKind
	lastStaff *int64
}

func (m *mockCheckService) Apply(_ context.Context, gateToken string, kind domain.CheckKind, staffID *int64) (*domain.Reservation, *domain.CheckEvent, error) {
	m.lastToken = gateToken
	m.lastKind = kind
	m.lastStaff = staffID
	return m.res, m.event, m.err
}

func (m *mockCheckService) ListEvents(_ context.Context, _, _ int) ([]domain.CheckEvent, error) {
	if m.event == nil {
		return nil, nil
	}
	return []domain.CheckEvent{*m.event}, nil
}

type mockCatalogService struct {
	lots []domain.ParkingLot
}

func (m *mockCatalogService) CreateLot(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	lot.ID = 1
	return lot, nil
}

func (m *mockCatalogService) ListLots(_ context.Context, _ repository.LotFilter, _, _ int) ([]domain.ParkingLot, error) {
	return m.lots, nil
}

func (m *mockCatalogService) GetLot(_ context.Context, id int64) (*domain.ParkingLot, error) {
	for i := range m.lots {
		if m.lots[i].ID == id {
			return &m.lots[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogService) CreateRatePlan(_ context.Context, plan *domain.RatePlan) (*domain.RatePlan, error) {
	plan.ID = 1
	return plan, nil
}

func (m *mockCatalogService) ListRatePlans(_ context.Context, _ int64) ([]domain.RatePlan, error) {
	return nil, nil
}

type mockPaymentService struct {
	payment *domain.Payment
	err     error
}

func (m *mockPaymentService) CreateIntent(_ context.Context, _ *domain.Reservation) (*domain.Payment, error) {
	return m.payment, m.err
}

var _ payments.Service = (*mockPaymentService)(nil)

// ---------- Helpers ----------

func newRouter(resSvc *mockReservationService, checkSvc *mockCheckService, catalogSvc *mockCatalogService, paySvc *mockPaymentService) chi.Router {
	h := handlers.New(resSvc, checkSvc, catalogSvc, paySvc, testSecret)

	r := chi.NewRouter()
	r.Route("/reservations", func(r chi.Router) {
		r.Use(h.RequireJWT(domain.RoleCustomer))
		r.Post("/", h.CreateReservation)
		r.Get("/", h.ListReservations)
		r.Get("/{id}", h.GetReservation)
		r.With(h.RequireJWT(domain.RoleAdmin)).Patch("/{id}", h.UpdateReservation)
		r.Post("/{id}/cancel", h.CancelReservation)
		r.Post("/{id}/payment-intent", h.CreatePaymentIntent)
	})
	r.With(h.RequireStaff).Post("/checks", h.ApplyCheck)
	r.With(h.RequireJWT(domain.RoleAdmin)).Get("/check-events", h.ListCheckEvents)
	r.Route("/lots", func(r chi.Router) {
		r.Get("/", h.ListLots)
		r.With(h.RequireJWT(domain.RoleAdmin)).Post("/", h.CreateLot)
	})
	return r
}

func bearer(t *testing.T, sub int64, role string) string {
	t.Helper()
	tok, err := auth.NewAccessToken(sub, "user@example.com", role, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(t *testing.T, router chi.Router, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleReservation() *domain.Reservation {
	userID := int64(42)
	return &domain.Reservation{
		ID:        uuid.New(),
		UserID:    &userID,
		LotID:     1,
		Plate:     "34ABC123",
		StartsAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:    domain.ReservationPending,
		GateToken: "u0sK3vN8xQ2pL7mR4tZ9wY6bC1dF5gH8jA0eS3iU7oM",
		Fee:       domain.Money(3000),
	}
}

// ---------- Tests ----------

func TestCreateReservationEndpoint(t *testing.T) {
	resSvc := &mockReservationService{created: sampleReservation()}
	router := newRouter(resSvc, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

	body := map[string]any{
		"lot_id":    1,
		"plate":     "34ABC123",
		"starts_at": "2025-06-01T09:00:00Z",
		"ends_at":   "2025-06-01T12:00:00Z",
	}
	rec := doJSON(t, router, http.MethodPost, "/reservations", bearer(t, 42, domain.RoleCustomer), body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	var got domain.Reservation
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.GateToken == "" {
		t.Error("response missing gate_token")
	}
	if got.Fee.String() != "30.00" {
		t.Errorf("fee = %s, want 30.00", got.Fee)
	}
	if resSvc.lastActor.UserID != 42 {
		t.Errorf("actor = %+v, want user 42", resSvc.lastActor)
	}
}

func TestCreateReservationEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		authz      string
		createErr  error
		body       any
		wantStatus int
	}{
		{"missing token", "", nil, map[string]any{}, http.StatusUnauthorized},
		{"validation error", "", domain.Validation("end time must be after start time"), map[string]any{}, http.StatusBadRequest},
		{"token exhaustion", "", domain.ErrTokenExhausted, map[string]any{}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resSvc := &mockReservationService{createErr: tt.createErr}
			router := newRouter(resSvc, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

			authz := tt.authz
			if tt.name != "missing token" {
				authz = bearer(t, 42, domain.RoleCustomer)
			}
			rec := doJSON(t, router, http.MethodPost, "/reservations", authz, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestApplyCheckEndpoint(t *testing.T) {
	res := sampleReservation()
	res.Status = domain.ReservationCheckedIn
	staff := int64(5)
	checkSvc := &mockCheckService{
		res: res,
		event: &domain.CheckEvent{
			ID:            1,
			ReservationID: res.ID,
			Kind:          domain.CheckIn,
			StaffID:       &staff,
			RecordedAt:    time.Now(),
		},
	}
	router := newRouter(&mockReservationService{}, checkSvc, &mockCatalogService{}, &mockPaymentService{})

	body := map[string]string{"gate_token": res.GateToken, "kind": "check_in"}
	rec := doJSON(t, router, http.MethodPost, "/checks", bearer(t, 5, domain.RoleStaff), body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if checkSvc.lastToken != res.GateToken {
		t.Errorf("service saw token %q", checkSvc.lastToken)
	}
	if checkSvc.lastKind != domain.CheckIn {
		t.Errorf("service saw kind %q", checkSvc.lastKind)
	}
	if checkSvc.lastStaff == nil || *checkSvc.lastStaff != 5 {
		t.Errorf("service saw staff %v, want 5", checkSvc.lastStaff)
	}

	var got struct {
		Reservation *domain.Reservation `json:"reservation"`
		Event       *domain.CheckEvent  `json:"event"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Reservation.Status != domain.ReservationCheckedIn {
		t.Errorf("reservation status = %s, want checked_in", got.Reservation.Status)
	}
}

func TestApplyCheckEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		body       map[string]string
		svcErr     error
		wantStatus int
	}{
		{"customer forbidden", domain.RoleCustomer, map[string]string{"gate_token": "x", "kind": "check_in"}, nil, http.StatusForbidden},
		{"missing gate token", domain.RoleStaff, map[string]string{"kind": "check_in"}, nil, http.StatusBadRequest},
		{"bad kind", domain.RoleStaff, map[string]string{"gate_token": "x", "kind": "exit"}, nil, http.StatusBadRequest},
		{"unknown token", domain.RoleStaff, map[string]string{"gate_token": "x", "kind": "check_in"}, domain.ErrNotFound, http.StatusNotFound},
		{"double check-in", domain.RoleStaff, map[string]string{"gate_token": "x", "kind": "check_in"},
			&domain.InvalidTransitionError{From: domain.ReservationCheckedIn, Event: "check_in"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkSvc := &mockCheckService{err: tt.svcErr}
			router := newRouter(&mockReservationService{}, checkSvc, &mockCatalogService{}, &mockPaymentService{})

			rec := doJSON(t, router, http.MethodPost, "/checks", bearer(t, 5, tt.role), tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestConflictResponseCarriesCurrentStatus(t *testing.T) {
	checkSvc := &mockCheckService{err: &domain.InvalidTransitionError{From: domain.ReservationCheckedOut, Event: "check_out"}}
	router := newRouter(&mockReservationService{}, checkSvc, &mockCatalogService{}, &mockPaymentService{})

	body := map[string]string{"gate_token": "x", "kind": "check_out"}
	rec := doJSON(t, router, http.MethodPost, "/checks", bearer(t, 5, domain.RoleStaff), body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var envelope struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details string `json:"details,omitempty"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Code != "INVALID_TRANSITION" {
		t.Errorf("code = %q, want INVALID_TRANSITION", envelope.Code)
	}
	if envelope.Details != "current status: checked_out" {
		t.Errorf("details = %q", envelope.Details)
	}
}

func TestCancelEndpoint(t *testing.T) {
	t.Run("forbidden for strangers", func(t *testing.T) {
		resSvc := &mockReservationService{cancelErr: domain.ErrForbidden}
		router := newRouter(resSvc, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

		path := fmt.Sprintf("/reservations/%s/cancel", uuid.New())
		rec := doJSON(t, router, http.MethodPost, path, bearer(t, 77, domain.RoleCustomer), nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("conflict after check-in", func(t *testing.T) {
		resSvc := &mockReservationService{cancelErr: &domain.InvalidTransitionError{From: domain.ReservationCheckedIn, Event: "cancel"}}
		router := newRouter(resSvc, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

		path := fmt.Sprintf("/reservations/%s/cancel", uuid.New())
		rec := doJSON(t, router, http.MethodPost, path, bearer(t, 42, domain.RoleCustomer), nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		canceled := sampleReservation()
		canceled.Status = domain.ReservationCanceled
		resSvc := &mockReservationService{cancelled: canceled}
		router := newRouter(resSvc, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

		path := fmt.Sprintf("/reservations/%s/cancel", canceled.ID)
		rec := doJSON(t, router, http.MethodPost, path, bearer(t, 42, domain.RoleCustomer), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got domain.Reservation
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Status != domain.ReservationCanceled {
			t.Errorf("status = %s, want canceled", got.Status)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		router := newRouter(&mockReservationService{}, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})
		rec := doJSON(t, router, http.MethodPost, "/reservations/not-a-uuid/cancel", bearer(t, 42, domain.RoleCustomer), nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListLotsEndpoint(t *testing.T) {
	catalogSvc := &mockCatalogService{lots: []domain.ParkingLot{
		{ID: 1, Name: "Harbor", Category: domain.LotOpen, Capacity: 120, Active: true},
	}}
	router := newRouter(&mockReservationService{}, &mockCheckService{}, catalogSvc, &mockPaymentService{})

	rec := doJSON(t, router, http.MethodGet, "/lots", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []domain.ParkingLot
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Harbor" {
		t.Errorf("lots = %+v", got)
	}
}

func TestAdminGates(t *testing.T) {
	router := newRouter(&mockReservationService{getRes: sampleReservation()}, &mockCheckService{}, &mockCatalogService{}, &mockPaymentService{})

	t.Run("customer cannot patch", func(t *testing.T) {
		path := fmt.Sprintf("/reservations/%s", uuid.New())
		rec := doJSON(t, router, http.MethodPatch, path, bearer(t, 42, domain.RoleCustomer), map[string]any{})
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("admin can patch", func(t *testing.T) {
		path := fmt.Sprintf("/reservations/%s", uuid.New())
		rec := doJSON(t, router, http.MethodPatch, path, bearer(t, 1, domain.RoleAdmin), map[string]any{})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("customer cannot list check events", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/check-events", bearer(t, 42, domain.RoleCustomer), nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}
