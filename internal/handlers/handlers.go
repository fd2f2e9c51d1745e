package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/http/response"
	"github.com/parkpass/parkpass-reservations/internal/payments"
	"github.com/parkpass/parkpass-reservations/internal/service"
	"github.com/parkpass/parkpass-reservations/pkg/auth"
	"github.com/parkpass/parkpass-reservations/pkg/logger"
)

type Handlers struct {
	reservations service.ReservationService
	checks       service.CheckService
	catalog      service.CatalogService
	payments     payments.Service
	jwtSecret    string
}

func New(
	reservations service.ReservationService,
	checks service.CheckService,
	catalog service.CatalogService,
	paymentSvc payments.Service,
	jwtSecret string,
) *Handlers {
	return &Handlers{
		reservations: reservations,
		checks:       checks,
		catalog:      catalog,
		payments:     paymentSvc,
		jwtSecret:    jwtSecret,
	}
}

type ctxKey string

const claimsKey ctxKey = "claims"

// RequireJWT parses the bearer token and enforces a role. Admins pass every
// role gate.
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != domain.RoleAdmin {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff admits staff and admin tokens.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.jwtSecret)
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}
		if claims.Role != domain.RoleStaff && claims.Role != domain.RoleAdmin {
			response.Forbidden(w, "Staff access required")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) domain.Actor {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	if claims == nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: claims.Sub, Email: claims.Email, Role: claims.Role}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeDomainError maps the core error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var transitionErr *domain.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Msg)
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "You do not have access to this reservation")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Not found")
	case errors.As(err, &transitionErr):
		response.InvalidTransition(w, transitionErr.Error(), string(transitionErr.From))
	case errors.Is(err, domain.ErrTokenExhausted):
		logger.ErrorContext(r.Context(), "Gate token issuance exhausted", "error", err)
		response.InternalError(w, "Could not allocate gate token")
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error", "error", err)
		response.InternalError(w, "Internal error")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}
	return limit, offset
}
