package postgres

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/farm-management/internal/farmer"
)

// FarmerRepository implements the farmer.Repository interface using GORM
type FarmerRepository struct {
	db *gorm.DB
}

func NewFarmerRepository(db *gorm.DB) farmer.Repository {
	return &FarmerRepository{db: db}
}

func (r *FarmerRepository) Create(ctx context.Context, f *farmer.Farmer) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// Search applies the optional filters; with none it returns every farmer.
// The jsonb containment filters require postgres and are skipped on other
// dialects.
func (r *FarmerRepository) Search(ctx context.Context, filters farmer.SearchFilters) ([]*farmer.Farmer, error) {
	query := r.db.WithContext(ctx).Model(&farmer.Farmer{})

	if len(filters.IDs) > 0 {
		query = query.Where("id IN ?", filters.IDs)
	}
	if len(filters.UserIDs) > 0 {
		query = query.Where("user_id IN ?", filters.UserIDs)
	}
	if filters.Name != "" {
		query = query.Where("name LIKE ?", "%"+filters.Name+"%")
	}
	if filters.Email != "" {
		query = query.Where("email = ?", filters.Email)
	}
	if filters.Phone != "" {
		query = query.Where("phone = ?", filters.Phone)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	if r.db.Dialector.Name() == "postgres" {
		query = applyContainsFilter(query, "crop_preferences", filters.CropPreferences)
		query = applyContainsFilter(query, "communication_channels", filters.CommunicationChannels)
		query = applyContainsFilter(query, "farming_methods", filters.FarmingMethods)
	}

	var farmers []*farmer.Farmer
	if err := query.Order("created_at DESC").Find(&farmers).Error; err != nil {
		return nil, err
	}
	return farmers, nil
}

func applyContainsFilter(query *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return query
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return query
	}
	return query.Where(column+" @> ?", string(encoded))
}

func (r *FarmerRepository) FetchByIDs(ctx context.Context, ids []string) ([]*farmer.Farmer, error) {
	var farmers []*farmer.Farmer
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&farmers).Error
	if err != nil {
		return nil, err
	}
	return farmers, nil
}

// UpdateByID patches the non-nil fields of data. The bool result reports
// whether a row was actually touched.
func (r *FarmerRepository) UpdateByID(ctx context.Context, id string, data farmer.UpdateFarmerData) (bool, error) {
	updates := buildUpdates(data)
	if len(updates) == 1 {
		// Only updated_at; still touch the row so the caller learns whether
		// the id exists.
		updates["updated_at"] = time.Now()
	}

	tx := r.db.WithContext(ctx).Model(&farmer.Farmer{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func buildUpdates(data farmer.UpdateFarmerData) map[string]interface{} {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if data.Name != nil {
		updates["name"] = *data.Name
	}
	if data.Email != nil {
		updates["email"] = *data.Email
	}
	if data.Phone != nil {
		updates["phone"] = *data.Phone
	}
	if data.Address != nil {
		updates["address"] = *data.Address
	}
	if data.Location != nil {
		updates["location"] = *data.Location
	}
	if data.ExperienceLevel != nil {
		updates["experience_level"] = *data.ExperienceLevel
	}
	if data.FarmingMethods != nil {
		updates["farming_methods"] = farmer.StringList(data.FarmingMethods)
	}
	if data.CommunicationChannels != nil {
		updates["communication_channels"] = farmer.StringList(data.CommunicationChannels)
	}
	if data.CropPreferences != nil {
		updates["crop_preferences"] = farmer.StringList(data.CropPreferences)
	}
	if data.IsActive != nil {
		updates["is_active"] = *data.IsActive
	}
	return updates
}

func (r *FarmerRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&farmer.Farmer{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
