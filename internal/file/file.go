package file

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/farm-management/internal"
)

// FileType is the closed classification derived from a mime type.
type FileType string

const (
	TypeImage    FileType = "image"
	TypeVideo    FileType = "video"
	TypeDocument FileType = "document"
	TypeAudio    FileType = "audio"
	TypeArchive  FileType = "archive"
)

// AllowedFileTypes are the classifications uploads may carry. Archives are
// detectable but not uploadable.
var AllowedFileTypes = []FileType{TypeImage, TypeDocument, TypeVideo, TypeAudio}

// Metadata is a free-form JSON column recorded alongside the upload, e.g.
// the client user agent.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported column type for Metadata")
	}
}

// File is the persisted upload record. UploadedBy is the owner field read by
// the ownership partition.
type File struct {
	ID               string    `json:"id" gorm:"column:id;primaryKey"`
	FileName         string    `json:"fileName" gorm:"column:file_name"`
	OriginalFileName string    `json:"originalFileName" gorm:"column:original_file_name"`
	FileSize         int64     `json:"fileSize" gorm:"column:file_size"`
	MimeType         string    `json:"mimeType" gorm:"column:mime_type"`
	FileType         FileType  `json:"fileType" gorm:"column:file_type"`
	UploadPath       string    `json:"uploadPath" gorm:"column:upload_path"`
	URL              string    `json:"url" gorm:"column:url"`
	UploadedAt       time.Time `json:"uploadedAt" gorm:"column:uploaded_at"`
	UploadedBy       string    `json:"uploadedBy" gorm:"column:uploaded_by;index"`
	Metadata         Metadata  `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
}

func (File) TableName() string {
	return "files"
}

// DetectFileType classifies a mime type. Prefix groups win over the substring
// groups; anything unmatched is an unsupported-type error.
func DetectFileType(mimeType string) (FileType, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return TypeImage, nil
	case strings.HasPrefix(mimeType, "video/"):
		return TypeVideo, nil
	case strings.HasPrefix(mimeType, "audio/"):
		return TypeAudio, nil
	}

	for _, marker := range []string{"pdf", "document", "text", "msword", "spreadsheet"} {
		if strings.Contains(mimeType, marker) {
			return TypeDocument, nil
		}
	}
	for _, marker := range []string{"zip", "rar", "tar", "gzip"} {
		if strings.Contains(mimeType, marker) {
			return TypeArchive, nil
		}
	}

	return "", internal.NewValidationError(
		fmt.Sprintf("Unsupported file type: %s", mimeType),
		internal.ErrCodeInvalidFileType,
	)
}

var sanitizeRegexp = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// GenerateUploadPath builds a collision-resistant storage key of the form
// <uploadPath>/<userID>/<timestamp>_<rand>_<sanitized-base>.<ext>.
func GenerateUploadPath(uploadPath, fileName, userID string) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	sanitized := sanitizeRegexp.ReplaceAllString(base, "_")
	suffix := randomSuffix(7)

	return fmt.Sprintf("%s/%s/%d_%s_%s.%s", uploadPath, userID, time.Now().UnixMilli(), suffix, sanitized, ext)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// ValidateUpload checks one incoming file against the storage limits and
// aggregates every violation into a single validation error.
func ValidateUpload(name, mimeType string, size int64, maxSize int64, allowedMime []string) error {
	var violations []string

	if size > maxSize {
		violations = append(violations,
			fmt.Sprintf("File size %d bytes exceeds maximum allowed size of %d bytes", size, maxSize))
	}

	// Detection failures fall back to document here; the mime whitelist below
	// still rejects anything genuinely unknown.
	fileType, err := DetectFileType(mimeType)
	if err != nil {
		fileType = TypeDocument
	}
	if !allowedType(fileType) {
		violations = append(violations, fmt.Sprintf("File type %s is not allowed", fileType))
	}

	if !allowedMimeType(mimeType, allowedMime) {
		violations = append(violations, fmt.Sprintf("MIME type %s is not allowed", mimeType))
	}

	if name == "" {
		violations = append(violations, "File name is required")
	}

	if len(violations) > 0 {
		return internal.NewValidationError("File validation failed", internal.ErrCodeUploadFailed).
			WithDetails(violations)
	}
	return nil
}

func allowedType(t FileType) bool {
	for _, allowed := range AllowedFileTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

func allowedMimeType(mimeType string, allowed []string) bool {
	for _, m := range allowed {
		if m == mimeType {
			return true
		}
	}
	return false
}
