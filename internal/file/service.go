package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/farm-management/internal"
	"github.com/frahmantamala/farm-management/internal/bulk"
	"github.com/frahmantamala/farm-management/internal/permission"
)

// Repository defines the data access methods for files.
type Repository interface {
	Create(ctx context.Context, f *File) error
	List(ctx context.Context, filters ListFilters) ([]*File, error)
	FetchByIDs(ctx context.Context, ids []string) ([]*File, error)
	UpdateByID(ctx context.Context, id string, data UpdateFileData) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// Upload is one incoming multipart part, already buffered by the handler.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
	Metadata    Metadata
}

type UpdateResult struct {
	UpdatedItems   []string                  `json:"updatedItems"`
	UnUpdatedItems []bulk.FailedItem[string] `json:"unUpdatedItems"`
}

type DeleteResult struct {
	DeletedItems   []string                  `json:"deletedItems"`
	UnDeletedItems []bulk.FailedItem[string] `json:"unDeletedItems"`
}

// Service owns upload validation, blob storage, and the permission and
// ownership rules over file rows.
type Service struct {
	repo    Repository
	storage Storage
	cfg     internal.StorageConfig
	logger  *slog.Logger
}

func NewService(repo Repository, storage Storage, cfg internal.StorageConfig, logger *slog.Logger) *Service {
	if len(cfg.AllowedMime) == 0 {
		cfg.AllowedMime = internal.DefaultAllowedMimeTypes
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = internal.DefaultMaxFileSize
	}
	return &Service{repo: repo, storage: storage, cfg: cfg, logger: logger}
}

// Upload validates and stores each part independently; one bad file never
// fails the rest of the batch. Requires the create permission.
func (s *Service) Upload(ctx context.Context, user *permission.User, uploads []Upload) (*UploadResult, error) {
	return permission.With(ctx, user, permission.Require(permission.FileCreate),
		func(ctx context.Context) (*UploadResult, error) {
			result := &UploadResult{
				UploadedFiles: make([]*File, 0, len(uploads)),
				FailedFiles:   make([]FailedFile, 0),
			}

			for _, up := range uploads {
				saved, err := s.uploadOne(ctx, user, up)
				if err != nil {
					s.logger.Warn("file upload failed", "file", up.Name, "error", err)
					result.FailedFiles = append(result.FailedFiles, FailedFile{
						ItemID: up.Name,
						Error:  err.Error(),
					})
					continue
				}
				result.UploadedFiles = append(result.UploadedFiles, saved)
			}

			return result, nil
		})
}

func (s *Service) uploadOne(ctx context.Context, user *permission.User, up Upload) (*File, error) {
	if err := ValidateUpload(up.Name, up.ContentType, up.Size, s.cfg.MaxFileSize, s.cfg.AllowedMime); err != nil {
		return nil, err
	}

	fileType, err := DetectFileType(up.ContentType)
	if err != nil {
		return nil, err
	}

	key := GenerateUploadPath(s.cfg.UploadPath, up.Name, user.UserID)
	url, err := s.storage.Save(ctx, key, up.Content, up.ContentType)
	if err != nil {
		return nil, internal.NewInternalError("failed to store upload", err)
	}

	record := &File{
		ID:               uuid.NewString(),
		FileName:         key,
		OriginalFileName: up.Name,
		FileSize:         up.Size,
		MimeType:         up.ContentType,
		FileType:         fileType,
		UploadPath:       key,
		URL:              url,
		UploadedAt:       time.Now(),
		UploadedBy:       user.UserID,
		Metadata:         up.Metadata,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// The blob is orphaned if this removal also fails; it is only a
		// best-effort cleanup.
		_ = s.storage.Remove(ctx, key)
		return nil, internal.NewInternalError("failed to save file record", err)
	}

	s.logger.Info("file uploaded", "file_id", record.ID, "user_id", user.UserID, "size", record.FileSize)
	return record, nil
}

// List returns files matching the filters. Requires the select permission.
func (s *Service) List(ctx context.Context, user *permission.User, filters ListFilters) ([]*File, error) {
	return permission.With(ctx, user, permission.Require(permission.FileSelect),
		func(ctx context.Context) ([]*File, error) {
			files, err := s.repo.List(ctx, filters)
			if err != nil {
				s.logger.Error("file listing failed", "error", err)
				return nil, internal.NewInternalError("failed to list files", err)
			}
			return files, nil
		})
}

// ResolveFileType classifies a mime type for the client. Requires the select
// permission.
func (s *Service) ResolveFileType(ctx context.Context, user *permission.User, dto FileTypeDTO) (FileType, error) {
	return permission.With(ctx, user, permission.Require(permission.FileSelect),
		func(ctx context.Context) (FileType, error) {
			if err := dto.Validate(); err != nil {
				return "", err
			}
			return DetectFileType(dto.MimeType)
		})
}

// BuildUploadPath returns the storage key an upload of fileName would get for
// the calling user. Requires the create permission.
func (s *Service) BuildUploadPath(ctx context.Context, user *permission.User, dto UploadPathDTO) (string, error) {
	return permission.With(ctx, user, permission.Require(permission.FileCreate),
		func(ctx context.Context) (string, error) {
			if err := dto.Validate(); err != nil {
				return "", err
			}
			return GenerateUploadPath(s.cfg.UploadPath, dto.FileName, user.UserID), nil
		})
}

// BulkUpdate patches file metadata with the global-then-owned permission
// flow.
func (s *Service) BulkUpdate(ctx context.Context, user *permission.User, dto UpdateFilesDTO) (*UpdateResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	apply := func(ctx context.Context, ids []string) bulk.Result[string] {
		return bulk.Apply(ctx, ids, func(ctx context.Context, id string) (bool, error) {
			return s.repo.UpdateByID(ctx, id, dto.Data)
		}, bulk.Messages[string]{
			NoRow: "Server didn't return the updated file",
			Unknown: func(id string) string {
				return fmt.Sprintf("Unknown error updating file %s", id)
			},
		})
	}

	if err := permission.Require(permission.FileUpdate)(ctx, user); err == nil {
		result := apply(ctx, dto.IDs)
		return &UpdateResult{UpdatedItems: result.Succeeded, UnUpdatedItems: result.Failed}, nil
	}

	if err := permission.Require(permission.FileOwnedUpdate)(ctx, user); err != nil {
		s.logger.Warn("bulk file update denied", "user_id", userID(user))
		return nil, err
	}

	rows, err := s.repo.FetchByIDs(ctx, dto.IDs)
	if err != nil {
		s.logger.Error("failed to fetch files for ownership check", "error", err)
		return nil, internal.NewInternalError("failed to fetch files", err)
	}

	checked := permission.PartitionByOwnership(ctx, user, rows,
		func(f *File) string { return f.ID },
		func(f *File) string { return f.UploadedBy })

	if len(checked.OwnedItems) == 0 {
		return &UpdateResult{
			UpdatedItems:   []string{},
			UnUpdatedItems: deniedToFailed(checked.UnPermissionedItems),
		}, nil
	}

	ownedIDs := make([]string, 0, len(checked.OwnedItems))
	for _, f := range checked.OwnedItems {
		ownedIDs = append(ownedIDs, f.ID)
	}
	result := apply(ctx, ownedIDs)

	return &UpdateResult{
		UpdatedItems:   result.Succeeded,
		UnUpdatedItems: append(result.Failed, deniedToFailed(checked.UnPermissionedItems)...),
	}, nil
}

// BulkDelete removes file rows and their stored blobs with the
// global-then-owned flow. Blob removal is attempted only for rows whose
// database delete went through.
func (s *Service) BulkDelete(ctx context.Context, user *permission.User, dto DeleteFilesDTO) (*DeleteResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := permission.Require(permission.FileDelete)(ctx, user); err == nil {
		result := s.deleteByIDs(ctx, dto.IDs)
		return &DeleteResult{DeletedItems: result.Succeeded, UnDeletedItems: result.Failed}, nil
	}

	if err := permission.Require(permission.FileOwnedDelete)(ctx, user); err != nil {
		s.logger.Warn("bulk file delete denied", "user_id", userID(user))
		return nil, err
	}

	rows, err := s.repo.FetchByIDs(ctx, dto.IDs)
	if err != nil {
		s.logger.Error("failed to fetch files for ownership check", "error", err)
		return nil, internal.NewInternalError("failed to fetch files", err)
	}

	checked := permission.PartitionByOwnership(ctx, user, rows,
		func(f *File) string { return f.ID },
		func(f *File) string { return f.UploadedBy })

	if len(checked.OwnedItems) == 0 {
		return &DeleteResult{
			DeletedItems:   []string{},
			UnDeletedItems: deniedToFailed(checked.UnPermissionedItems),
		}, nil
	}

	ownedIDs := make([]string, 0, len(checked.OwnedItems))
	for _, f := range checked.OwnedItems {
		ownedIDs = append(ownedIDs, f.ID)
	}
	result := s.deleteByIDs(ctx, ownedIDs)

	return &DeleteResult{
		DeletedItems:   result.Succeeded,
		UnDeletedItems: append(result.Failed, deniedToFailed(checked.UnPermissionedItems)...),
	}, nil
}

func (s *Service) deleteByIDs(ctx context.Context, ids []string) bulk.Result[string] {
	// Paths are looked up before the rows disappear so blobs can be cleaned
	// up afterwards.
	paths := make(map[string]string, len(ids))
	if rows, err := s.repo.FetchByIDs(ctx, ids); err == nil {
		for _, row := range rows {
			paths[row.ID] = row.UploadPath
		}
	}

	result := bulk.Apply(ctx, ids, func(ctx context.Context, id string) (bool, error) {
		return s.repo.DeleteByID(ctx, id)
	}, bulk.Messages[string]{
		NoRow: "Server didn't return the deleted file",
		Unknown: func(id string) string {
			return fmt.Sprintf("Unknown error while deleting file %s", id)
		},
	})

	for _, id := range result.Succeeded {
		key, ok := paths[id]
		if !ok {
			continue
		}
		if err := s.storage.Remove(ctx, key); err != nil {
			s.logger.Warn("failed to remove stored blob", "file_id", id, "key", key, "error", err)
		}
	}

	return result
}

func deniedToFailed(items []permission.UnPermissionedItem[string]) []bulk.FailedItem[string] {
	out := make([]bulk.FailedItem[string], 0, len(items))
	for _, item := range items {
		out = append(out, bulk.FailedItem[string]{ItemID: item.ItemID, Error: item.Error})
	}
	return out
}

func userID(user *permission.User) string {
	if user == nil {
		return ""
	}
	return user.UserID
}
