package farmer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/farm-management/internal/auth"
	"github.com/frahmantamala/farm-management/internal/permission"
	"github.com/frahmantamala/farm-management/internal/transport"
	"github.com/frahmantamala/farm-management/pkg/logger"
)

type ServiceAPI interface {
	Search(ctx context.Context, user *permission.User, filters SearchFilters) ([]*Farmer, error)
	Create(ctx context.Context, user *permission.User, dto CreateFarmerDTO) (*Farmer, error)
	BulkUpdate(ctx context.Context, user *permission.User, dto UpdateFarmersDTO) (*UpdateResult, error)
	BulkDelete(ctx context.Context, user *permission.User, dto DeleteFarmersDTO) (*DeleteResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) SearchFarmers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("SearchFarmers: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filters, err := ParseSearchFilters(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	farmers, err := h.Service.Search(r.Context(), user, filters)
	if err != nil {
		h.Logger.Error("SearchFarmers: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, farmers)
}

func (h *Handler) CreateFarmer(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("CreateFarmer: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateFarmerDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateFarmer: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.Logger.Error("CreateFarmer: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateFarmer: farmer created", "farmer_id", created.ID, "user_id", user.UserID)
	h.WriteJSON(w, http.StatusCreated, created)
}

// UpdateFarmers handles PATCH /farmers. Per-row failures land in the body,
// never in the HTTP status; only an outright permission denial becomes 403.
func (h *Handler) UpdateFarmers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("UpdateFarmers: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateFarmersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateFarmers: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkUpdate(r.Context(), user, dto)
	if err != nil {
		h.Logger.Error("UpdateFarmers: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteFarmers(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("DeleteFarmers: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto DeleteFarmersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("DeleteFarmers: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkDelete(r.Context(), user, dto)
	if err != nil {
		h.Logger.Error("DeleteFarmers: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
