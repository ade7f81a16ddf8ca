package file

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

// multipartMemoryLimit bounds how much of a multipart body is held in memory;
// larger parts spill to temp files.
const multipartMemoryLimit = 32 << 20

type ServiceAPI interface {
	Upload(ctx context.Context, user *permission.User, uploads []Upload) (*UploadResult, error)
	List(ctx context.Context, user *permission.User, filters ListFilters) ([]*File, error)
	ResolveFileType(ctx context.Context, user *permission.User, dto FileTypeDTO) (FileType, error)
	BuildUploadPath(ctx context.Context, user *permission.User, dto UploadPathDTO) (string, error)
	BulkUpdate(ctx context.Context, user *permission.User, dto UpdateFilesDTO) (*UpdateResult, error)
	BulkDelete(ctx context.Context, user *permission.User, dto DeleteFilesDTO) (*DeleteResult, error)
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

// UploadFiles handles POST /files/upload with one or more "files" parts.
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("UploadFiles: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		h.Logger.Error("UploadFiles: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		h.WriteError(w, http.StatusBadRequest, "no files provided")
		return
	}

	metadata := Metadata{"userAgent": r.UserAgent()}

	uploads := make([]Upload, 0, len(parts))
	for _, part := range parts {
		content, err := part.Open()
		if err != nil {
			h.Logger.Error("UploadFiles: failed to open part", "file", part.Filename, "error", err)
			h.WriteError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		defer content.Close()

		uploads = append(uploads, Upload{
			Name:        part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Size:        part.Size,
			Content:     content,
			Metadata:    metadata,
		})
	}

	result, err := h.Service.Upload(r.Context(), user, uploads)
	if err != nil {
		h.Logger.Error("UploadFiles: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("UploadFiles: batch processed",
		"user_id", user.UserID,
		"uploaded", len(result.UploadedFiles),
		"failed", len(result.FailedFiles))

	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ListFiles: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filters, err := ParseListFilters(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	files, err := h.Service.List(r.Context(), user, filters)
	if err != nil {
		h.Logger.Error("ListFiles: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) UpdateFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("UpdateFiles: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateFilesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateFiles: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkUpdate(r.Context(), user, dto)
	if err != nil {
		h.Logger.Error("UpdateFiles: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("DeleteFiles: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto DeleteFilesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("DeleteFiles: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkDelete(r.Context(), user, dto)
	if err != nil {
		h.Logger.Error("DeleteFiles: service error", "error", err, "user_id", user.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// GetFileType handles POST /files/type: classify a mime type without an
// upload.
func (h *Handler) GetFileType(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto FileTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fileType, err := h.Service.ResolveFileType(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]FileType{"fileType": fileType})
}

// GetUploadPath handles POST /files/path: preview the storage key an upload
// would receive.
func (h *Handler) GetUploadPath(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UploadPathDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path, err := h.Service.BuildUploadPath(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"uploadPath": path})
}
