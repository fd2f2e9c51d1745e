package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/http/response"
	"github.com/parkpass/parkpass-reservations/internal/service"
)

// CreateReservation handles POST /reservations.
func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReservationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.reservations.Create(r.Context(), actorFrom(r), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListReservations returns the caller's reservations, or every reservation
// for admins.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var statusPtr *domain.ReservationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseReservationStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		statusPtr = &st
	}

	reservations, err := h.reservations.List(r.Context(), actorFrom(r), limit, offset, statusPtr)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if reservations == nil {
		reservations = []domain.Reservation{}
	}

	writeJSON(w, http.StatusOK, reservations)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reservation ID")
		return
	}

	res, err := h.reservations.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// UpdateReservation handles PATCH /reservations/{id} (admin). Changing the
// interval, lot or rate plan recomputes the fee.
func (h *Handlers) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reservation ID")
		return
	}

	var patch service.ReservationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.reservations.Update(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// CancelReservation handles POST /reservations/{id}/cancel.
func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reservation ID")
		return
	}

	res, err := h.reservations.Cancel(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// CreatePaymentIntent hands the reservation fee to the billing collaborator.
func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid reservation ID")
		return
	}

	res, err := h.reservations.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	payment, err := h.payments.CreateIntent(r.Context(), res)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}
