package file

import (
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/frahmantamala/farm-management/internal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ListFilters narrows GET /files. All fields optional.
type ListFilters struct {
	UploadedBy string
	IDs        []string
	FileType   FileType
}

func ParseListFilters(values url.Values) (ListFilters, error) {
	f := ListFilters{
		UploadedBy: values.Get("uploadedBy"),
	}
	for _, raw := range values["ids"] {
		if raw != "" {
			f.IDs = append(f.IDs, raw)
		}
	}
	if raw := values.Get("fileType"); raw != "" {
		t := FileType(raw)
		switch t {
		case TypeImage, TypeVideo, TypeDocument, TypeAudio, TypeArchive:
			f.FileType = t
		default:
			return f, internal.NewValidationError("unknown fileType "+raw, internal.ErrCodeValidationFailed)
		}
	}
	return f, nil
}

// UpdateFileData is the patchable subset of a file row. Storage-derived
// fields (size, path, url) are immutable through the API.
type UpdateFileData struct {
	OriginalFileName *string  `json:"originalFileName" validate:"omitempty,min=1,max=500"`
	Metadata         Metadata `json:"metadata"`
}

type UpdateFilesDTO struct {
	IDs  []string       `json:"ids" validate:"required,min=1,dive,uuid4"`
	Data UpdateFileData `json:"data"`
}

func (d *UpdateFilesDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type DeleteFilesDTO struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

func (d *DeleteFilesDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type FileTypeDTO struct {
	MimeType string `json:"mimeType" validate:"required"`
}

func (d *FileTypeDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

type UploadPathDTO struct {
	FileName string `json:"fileName" validate:"required,min=1,max=500"`
}

func (d *UploadPathDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// UploadResult reports one multipart request's outcome. Failed entries carry
// the original file name because a failed upload never got an id.
type UploadResult struct {
	UploadedFiles []*File      `json:"uploadedFiles"`
	FailedFiles   []FailedFile `json:"failedFiles"`
}

type FailedFile struct {
	ItemID string `json:"itemId"`
	Error  string `json:"error"`
}
