package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/http/response"
)

type checkReq struct {
	GateToken string `json:"gate_token"`
	Kind      string `json:"kind"`
}

type checkRes struct {
	Reservation *domain.Reservation `json:"reservation"`
	Event       *domain.CheckEvent  `json:"event"`
}

// ApplyCheck handles POST /checks: a staff member scans the customer's gate
// token and records a check-in or check-out.
func (h *Handlers) ApplyCheck(w http.ResponseWriter, r *http.Request) {
	var req checkReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if req.GateToken == "" {
		response.BadRequest(w, "gate_token is required")
		return
	}
	kind, ok := domain.ParseCheckKind(req.Kind)
	if !ok {
		response.BadRequest(w, "kind must be check_in or check_out")
		return
	}

	var staffID *int64
	if actor := actorFrom(r); actor.UserID != 0 {
		id := actor.UserID
		staffID = &id
	}

	res, ev, err := h.checks.Apply(r.Context(), req.GateToken, kind, staffID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkRes{Reservation: res, Event: ev})
}

// ListCheckEvents handles GET /check-events (admin audit listing).
func (h *Handlers) ListCheckEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	events, err := h.checks.ListEvents(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.CheckEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}
