package farmer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/farm-management/internal"
	"github.com/frahmantamala/farm-management/internal/bulk"
	"github.com/frahmantamala/farm-management/internal/permission"
)

// Repository defines the data access methods for farmers. UpdateByID and
// DeleteByID report whether the store returned the affected row; a clean call
// that matched nothing reports false.
type Repository interface {
	Search(ctx context.Context, filters SearchFilters) ([]*Farmer, error)
	FetchByIDs(ctx context.Context, ids []string) ([]*Farmer, error)
	Create(ctx context.Context, farmer *Farmer) error
	UpdateByID(ctx context.Context, id string, data UpdateFarmerData) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// UpdateResult is the bulk-update response body. UpdatedItems and the item
// ids inside UnUpdatedItems are disjoint and together cover every attempted
// id.
type UpdateResult struct {
	UpdatedItems   []string                  `json:"updatedItems"`
	UnUpdatedItems []bulk.FailedItem[string] `json:"unUpdatedItems"`
}

type DeleteResult struct {
	DeletedItems   []string                  `json:"deletedItems"`
	UnDeletedItems []bulk.FailedItem[string] `json:"unDeletedItems"`
}

// Service applies the permission and ownership rules before any farmer
// mutation.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Search lists farmers matching the filters. Requires the select permission.
func (s *Service) Search(ctx context.Context, user *permission.User, filters SearchFilters) ([]*Farmer, error) {
	return permission.With(ctx, user, permission.Require(permission.FarmerSelect),
		func(ctx context.Context) ([]*Farmer, error) {
			farmers, err := s.repo.Search(ctx, filters)
			if err != nil {
				s.logger.Error("farmer search failed", "error", err)
				return nil, internal.NewInternalError("failed to search farmers", err)
			}
			return farmers, nil
		})
}

// Create registers a new farmer profile. Requires the create permission.
func (s *Service) Create(ctx context.Context, user *permission.User, dto CreateFarmerDTO) (*Farmer, error) {
	return permission.With(ctx, user, permission.Require(permission.FarmerCreate),
		func(ctx context.Context) (*Farmer, error) {
			if err := dto.Validate(); err != nil {
				return nil, err
			}

			now := time.Now()
			farmer := &Farmer{
				ID:                    uuid.NewString(),
				Name:                  dto.Name,
				UserID:                dto.UserID,
				Email:                 dto.Email,
				Phone:                 dto.Phone,
				Address:               dto.Address,
				Location:              dto.Location,
				ExperienceLevel:       dto.ExperienceLevel,
				FarmingMethods:        StringList(dto.FarmingMethods),
				CommunicationChannels: StringList(dto.CommunicationChannels),
				CropPreferences:       StringList(dto.CropPreferences),
				IsActive:              true,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if err := s.repo.Create(ctx, farmer); err != nil {
				s.logger.Error("failed to create farmer", "error", err, "user_id", dto.UserID)
				return nil, internal.NewInternalError("failed to create farmer", err)
			}

			s.logger.Info("farmer created", "farmer_id", farmer.ID, "user_id", farmer.UserID)
			return farmer, nil
		})
}

// BulkUpdate patches the given farmers. A caller with the global update
// permission touches every requested id; otherwise the owned variant is
// required and only rows the caller owns are updated, with the rest reported
// as permission denials.
func (s *Service) BulkUpdate(ctx context.Context, user *permission.User, dto UpdateFarmersDTO) (*UpdateResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	apply := func(ctx context.Context, ids []string) bulk.Result[string] {
		return bulk.Apply(ctx, ids, func(ctx context.Context, id string) (bool, error) {
			return s.repo.UpdateByID(ctx, id, dto.Data)
		}, bulk.Messages[string]{
			NoRow: "Server didn't return the updated farmer",
			Unknown: func(id string) string {
				return fmt.Sprintf("Unknown error updating farmer %s", id)
			},
		})
	}

	if err := permission.Require(permission.FarmerUpdate)(ctx, user); err == nil {
		result := apply(ctx, dto.IDs)
		return &UpdateResult{UpdatedItems: result.Succeeded, UnUpdatedItems: result.Failed}, nil
	}

	if err := permission.Require(permission.FarmerOwnedUpdate)(ctx, user); err != nil {
		s.logger.Warn("bulk farmer update denied", "user_id", userID(user))
		return nil, err
	}

	rows, err := s.repo.FetchByIDs(ctx, dto.IDs)
	if err != nil {
		s.logger.Error("failed to fetch farmers for ownership check", "error", err)
		return nil, internal.NewInternalError("failed to fetch farmers", err)
	}

	checked := permission.PartitionByOwnership(ctx, user, rows,
		func(f *Farmer) string { return f.ID },
		func(f *Farmer) string { return f.UserID })

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

// BulkDelete removes the given farmers with the same global-then-owned flow
// as BulkUpdate.
func (s *Service) BulkDelete(ctx context.Context, user *permission.User, dto DeleteFarmersDTO) (*DeleteResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	apply := func(ctx context.Context, ids []string) bulk.Result[string] {
		return bulk.Apply(ctx, ids, func(ctx context.Context, id string) (bool, error) {
			return s.repo.DeleteByID(ctx, id)
		}, bulk.Messages[string]{
			NoRow: "Server didn't return the deleted farmer",
			Unknown: func(id string) string {
				return fmt.Sprintf("Unknown error while deleting farmer %s", id)
			},
		})
	}

	if err := permission.Require(permission.FarmerDelete)(ctx, user); err == nil {
		result := apply(ctx, dto.IDs)
		return &DeleteResult{DeletedItems: result.Succeeded, UnDeletedItems: result.Failed}, nil
	}

	if err := permission.Require(permission.FarmerOwnedDelete)(ctx, user); err != nil {
		s.logger.Warn("bulk farmer delete denied", "user_id", userID(user))
		return nil, err
	}

	rows, err := s.repo.FetchByIDs(ctx, dto.IDs)
	if err != nil {
		s.logger.Error("failed to fetch farmers for ownership check", "error", err)
		return nil, internal.NewInternalError("failed to fetch farmers", err)
	}

	checked := permission.PartitionByOwnership(ctx, user, rows,
		func(f *Farmer) string { return f.ID },
		func(f *Farmer) string { return f.UserID })

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
	result := apply(ctx, ownedIDs)

	return &DeleteResult{
		DeletedItems:   result.Succeeded,
		UnDeletedItems: append(result.Failed, deniedToFailed(checked.UnPermissionedItems)...),
	}, nil
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
