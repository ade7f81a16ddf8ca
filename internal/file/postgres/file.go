package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/farm-management/internal/file"
)

// FileRepository implements the file.Repository interface using GORM
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) file.Repository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *file.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FileRepository) List(ctx context.Context, filters file.ListFilters) ([]*file.File, error) {
	query := r.db.WithContext(ctx).Model(&file.File{})

	if filters.UploadedBy != "" {
		query = query.Where("uploaded_by = ?", filters.UploadedBy)
	}
	if len(filters.IDs) > 0 {
		query = query.Where("id IN ?", filters.IDs)
	}
	if filters.FileType != "" {
		query = query.Where("file_type = ?", filters.FileType)
	}

	var files []*file.File
	if err := query.Order("uploaded_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *FileRepository) FetchByIDs(ctx context.Context, ids []string) ([]*file.File, error) {
	var files []*file.File
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *FileRepository) UpdateByID(ctx context.Context, id string, data file.UpdateFileData) (bool, error) {
	updates := map[string]interface{}{}
	if data.OriginalFileName != nil {
		updates["original_file_name"] = *data.OriginalFileName
	}
	if data.Metadata != nil {
		updates["metadata"] = data.Metadata
	}
	if len(updates) == 0 {
		// Nothing to patch; probe existence so empty updates still report
		// whether the row exists.
		var count int64
		if err := r.db.WithContext(ctx).Model(&file.File{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}

	tx := r.db.WithContext(ctx).Model(&file.File{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *FileRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&file.File{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
