package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/http/response"
	"github.com/parkpass/parkpass-reservations/internal/repository"
)

type createLotReq struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
	Active   *bool  `json:"active,omitempty"`
}

func (h *Handlers) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req createLotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	lot, err := h.catalog.CreateLot(r.Context(), &domain.ParkingLot{
		Name:     req.Name,
		Category: domain.LotCategory(req.Category),
		Location: req.Location,
		Capacity: req.Capacity,
		Active:   active,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, lot)
}

func (h *Handlers) ListLots(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	params := r.URL.Query()

	var filter repository.LotFilter
	if raw := params.Get("active"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &b
		}
	}
	if raw := params.Get("category"); raw != "" {
		cat, ok := domain.ParseLotCategory(raw)
		if !ok {
			response.BadRequest(w, "Invalid category parameter")
			return
		}
		filter.Category = &cat
	}
	filter.Search = params.Get("search")

	lots, err := h.catalog.ListLots(r.Context(), filter, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if lots == nil {
		lots = []domain.ParkingLot{}
	}

	writeJSON(w, http.StatusOK, lots)
}

func (h *Handlers) GetLot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid lot ID")
		return
	}

	lot, err := h.catalog.GetLot(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lot)
}

type createPlanReq struct {
	Name       string        `json:"name"`
	HourlyRate domain.Money  `json:"hourly_rate"`
	DailyCap   *domain.Money `json:"daily_cap,omitempty"`
}

func (h *Handlers) CreateRatePlan(w http.ResponseWriter, r *http.Request) {
	lotID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid lot ID")
		return
	}

	var req createPlanReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	plan, err := h.catalog.CreateRatePlan(r.Context(), &domain.RatePlan{
		LotID:      lotID,
		Name:       req.Name,
		HourlyRate: req.HourlyRate,
		DailyCap:   req.DailyCap,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handlers) ListRatePlans(w http.ResponseWriter, r *http.Request) {
	lotID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid lot ID")
		return
	}

	if _, err := h.catalog.GetLot(r.Context(), lotID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	plans, err := h.catalog.ListRatePlans(r.Context(), lotID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if plans == nil {
		plans = []domain.RatePlan{}
	}

	writeJSON(w, http.StatusOK, plans)
}
