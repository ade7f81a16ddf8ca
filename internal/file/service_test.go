package file_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/farm-management/internal"
	"github.com/frahmantamala/farm-management/internal/bulk"
	"github.com/frahmantamala/farm-management/internal/file"
	"github.com/frahmantamala/farm-management/internal/permission"
)

func TestFileService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "File Service Suite")
}

const (
	fileA = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	fileB = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

// mockFileRepository implements file.Repository for testing.
type mockFileRepository struct {
	files map[string]*file.File

	createError  error
	listError    error
	fetchError   error
	updateErrors map[string]error
	deleteErrors map[string]error

	fetchCalls  int
	deleteCalls []string
}

func newMockFileRepository() *mockFileRepository {
	return &mockFileRepository{
		files:        make(map[string]*file.File),
		updateErrors: make(map[string]error),
		deleteErrors: make(map[string]error),
	}
}

func (m *mockFileRepository) add(id, ownerID, uploadPath string) {
	m.files[id] = &file.File{
		ID:               id,
		FileName:         uploadPath,
		OriginalFileName: "photo.jpg",
		FileSize:         1024,
		MimeType:         "image/jpeg",
		FileType:         file.TypeImage,
		UploadPath:       uploadPath,
		URL:              "/images/" + uploadPath,
		UploadedAt:       time.Now(),
		UploadedBy:       ownerID,
	}
}

func (m *mockFileRepository) Create(_ context.Context, f *file.File) error {
	if m.createError != nil {
		return m.createError
	}
	m.files[f.ID] = f
	return nil
}

func (m *mockFileRepository) List(_ context.Context, _ file.ListFilters) ([]*file.File, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	out := make([]*file.File, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFileRepository) FetchByIDs(_ context.Context, ids []string) ([]*file.File, error) {
	m.fetchCalls++
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	out := make([]*file.File, 0, len(ids))
	for _, id := range ids {
		if f, ok := m.files[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFileRepository) UpdateByID(_ context.Context, id string, _ file.UpdateFileData) (bool, error) {
	if err, ok := m.updateErrors[id]; ok {
		return false, err
	}
	_, exists := m.files[id]
	return exists, nil
}

func (m *mockFileRepository) DeleteByID(_ context.Context, id string) (bool, error) {
	m.deleteCalls = append(m.deleteCalls, id)
	if err, ok := m.deleteErrors[id]; ok {
		return false, err
	}
	if _, exists := m.files[id]; !exists {
		return false, nil
	}
	delete(m.files, id)
	return true, nil
}

// mockStorage implements file.Storage and records every blob operation.
type mockStorage struct {
	saved     map[string]string
	removed   []string
	saveError error
}

func newMockStorage() *mockStorage {
	return &mockStorage{saved: make(map[string]string)}
}

func (m *mockStorage) Save(_ context.Context, key string, content io.Reader, contentType string) (string, error) {
	if m.saveError != nil {
		return "", m.saveError
	}
	m.saved[key] = contentType
	return "/images/" + key, nil
}

func (m *mockStorage) Remove(_ context.Context, key string) error {
	m.removed = append(m.removed, key)
	delete(m.saved, key)
	return nil
}

var _ = Describe("FileService", func() {
	var (
		ctx     context.Context
		repo    *mockFileRepository
		storage *mockStorage
		service *file.Service
		admin   *permission.User
		owner   *permission.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockFileRepository()
		storage = newMockStorage()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = file.NewService(repo, storage, internal.StorageConfig{UploadPath: "uploads"}, logger)
		admin = permission.NewUser("admin-1", "sess-a", permission.RoleAdmin)
		owner = permission.NewUser("user-1", "sess-u", permission.RoleUser)
	})

	Describe("Upload", func() {
		goodUpload := func(name string) file.Upload {
			return file.Upload{
				Name:        name,
				ContentType: "image/jpeg",
				Size:        1024,
				Content:     strings.NewReader("jpeg bytes"),
			}
		}

		It("should store the blob and persist the record", func() {
			result, err := service.Upload(ctx, owner, []file.Upload{goodUpload("photo.jpg")})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.FailedFiles).To(BeEmpty())
			Expect(result.UploadedFiles).To(HaveLen(1))

			saved := result.UploadedFiles[0]
			Expect(saved.OriginalFileName).To(Equal("photo.jpg"))
			Expect(saved.FileType).To(Equal(file.TypeImage))
			Expect(saved.UploadedBy).To(Equal(owner.UserID))
			Expect(saved.UploadPath).To(HavePrefix("uploads/" + owner.UserID + "/"))
			Expect(storage.saved).To(HaveKey(saved.UploadPath))
			Expect(repo.files).To(HaveKey(saved.ID))
		})

		It("should keep uploading the rest of the batch when one file is invalid", func() {
			tooBig := file.Upload{
				Name:        "movie.mp4",
				ContentType: "video/mp4",
				Size:        internal.DefaultMaxFileSize + 1,
				Content:     strings.NewReader("video bytes"),
			}

			result, err := service.Upload(ctx, owner, []file.Upload{tooBig, goodUpload("photo.jpg")})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UploadedFiles).To(HaveLen(1))
			Expect(result.FailedFiles).To(HaveLen(1))
			Expect(result.FailedFiles[0].ItemID).To(Equal("movie.mp4"))
		})

		It("should reject a mime type outside the whitelist", func() {
			result, err := service.Upload(ctx, owner, []file.Upload{{
				Name:        "backup.zip",
				ContentType: "application/zip",
				Size:        1024,
				Content:     strings.NewReader("zip bytes"),
			}})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UploadedFiles).To(BeEmpty())
			Expect(result.FailedFiles).To(HaveLen(1))
		})

		It("should remove the blob when the record cannot be saved", func() {
			repo.createError = errors.New("insert failed")

			result, err := service.Upload(ctx, owner, []file.Upload{goodUpload("photo.jpg")})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UploadedFiles).To(BeEmpty())
			Expect(result.FailedFiles).To(HaveLen(1))
			Expect(storage.removed).To(HaveLen(1))
			Expect(storage.saved).To(BeEmpty())
		})

		It("should refuse a caller without the create permission", func() {
			stripped := permission.NewUser("user-1", "sess-u", permission.RoleUser)
			stripped.Permissions = permission.NewSet(permission.FileSelect)

			_, err := service.Upload(ctx, stripped, []file.Upload{goodUpload("photo.jpg")})

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(storage.saved).To(BeEmpty())
		})
	})

	Describe("List", func() {
		It("should return files for a caller with the select permission", func() {
			repo.add(fileA, owner.UserID, "uploads/user-1/photo.jpg")

			files, err := service.List(ctx, owner, file.ListFilters{})

			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(1))
		})

		It("should wrap a store failure in an internal error", func() {
			repo.listError = errors.New("connection refused")

			_, err := service.List(ctx, owner, file.ListFilters{})

			var appErr *internal.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
		})
	})

	Describe("ResolveFileType", func() {
		It("should classify a known mime type", func() {
			fileType, err := service.ResolveFileType(ctx, owner, file.FileTypeDTO{MimeType: "application/pdf"})

			Expect(err).NotTo(HaveOccurred())
			Expect(fileType).To(Equal(file.TypeDocument))
		})

		It("should fail on an unsupported mime type", func() {
			_, err := service.ResolveFileType(ctx, owner, file.FileTypeDTO{MimeType: "application/octet-stream"})

			var appErr *internal.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Message).To(ContainSubstring("application/octet-stream"))
		})
	})

	Describe("BuildUploadPath", func() {
		It("should scope the key to the calling user", func() {
			key, err := service.BuildUploadPath(ctx, owner, file.UploadPathDTO{FileName: "my photo.jpg"})

			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(HavePrefix("uploads/user-1/"))
			Expect(key).To(HaveSuffix("_my_photo.jpg"))
		})
	})

	Describe("BulkUpdate", func() {
		newName := "renamed.jpg"

		It("should update every id for a caller with the global permission", func() {
			repo.add(fileA, "user-1", "uploads/user-1/a.jpg")
			repo.add(fileB, "user-2", "uploads/user-2/b.jpg")

			result, err := service.BulkUpdate(ctx, admin, file.UpdateFilesDTO{
				IDs:  []string{fileA, fileB},
				Data: file.UpdateFileData{OriginalFileName: &newName},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UpdatedItems).To(Equal([]string{fileA, fileB}))
			Expect(result.UnUpdatedItems).To(BeEmpty())
			Expect(repo.fetchCalls).To(BeZero())
		})

		It("should update only owned rows for a regular user", func() {
			repo.add(fileA, owner.UserID, "uploads/user-1/a.jpg")
			repo.add(fileB, "user-2", "uploads/user-2/b.jpg")

			result, err := service.BulkUpdate(ctx, owner, file.UpdateFilesDTO{
				IDs:  []string{fileA, fileB},
				Data: file.UpdateFileData{OriginalFileName: &newName},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UpdatedItems).To(Equal([]string{fileA}))
			Expect(result.UnUpdatedItems).To(Equal([]bulk.FailedItem[string]{
				{ItemID: fileB, Error: "Insufficient permissions for this item"},
			}))
		})
	})

	Describe("BulkDelete", func() {
		It("should delete rows and remove their blobs for the global permission", func() {
			repo.add(fileA, "user-1", "uploads/user-1/a.jpg")
			repo.add(fileB, "user-2", "uploads/user-2/b.jpg")

			result, err := service.BulkDelete(ctx, admin, file.DeleteFilesDTO{
				IDs: []string{fileA, fileB},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedItems).To(Equal([]string{fileA, fileB}))
			Expect(storage.removed).To(ConsistOf("uploads/user-1/a.jpg", "uploads/user-2/b.jpg"))
		})

		It("should delete only owned rows and their blobs for a regular user", func() {
			repo.add(fileA, owner.UserID, "uploads/user-1/a.jpg")
			repo.add(fileB, "user-2", "uploads/user-2/b.jpg")

			result, err := service.BulkDelete(ctx, owner, file.DeleteFilesDTO{
				IDs: []string{fileA, fileB},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedItems).To(Equal([]string{fileA}))
			Expect(result.UnDeletedItems).To(Equal([]bulk.FailedItem[string]{
				{ItemID: fileB, Error: "Insufficient permissions for this item"},
			}))
			Expect(storage.removed).To(Equal([]string{"uploads/user-1/a.jpg"}))
			Expect(repo.deleteCalls).To(Equal([]string{fileA}))
		})

		It("should keep the blob when the row delete fails", func() {
			repo.add(fileA, "user-1", "uploads/user-1/a.jpg")
			repo.deleteErrors[fileA] = errors.New("row is locked")

			result, err := service.BulkDelete(ctx, admin, file.DeleteFilesDTO{
				IDs: []string{fileA},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedItems).To(BeEmpty())
			Expect(result.UnDeletedItems).To(Equal([]bulk.FailedItem[string]{
				{ItemID: fileA, Error: "row is locked"},
			}))
			Expect(storage.removed).To(BeEmpty())
		})

		It("should skip the store entirely when no row is owned", func() {
			repo.add(fileA, "user-2", "uploads/user-2/a.jpg")

			result, err := service.BulkDelete(ctx, owner, file.DeleteFilesDTO{
				IDs: []string{fileA},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeletedItems).To(BeEmpty())
			Expect(result.UnDeletedItems).To(HaveLen(1))
			Expect(repo.deleteCalls).To(BeEmpty())
			Expect(storage.removed).To(BeEmpty())
		})

		It("should refuse a caller with neither delete permission", func() {
			stripped := permission.NewUser("user-1", "sess-u", permission.RoleUser)
			stripped.Permissions = permission.NewSet(permission.FileSelect)

			_, err := service.BulkDelete(ctx, stripped, file.DeleteFilesDTO{
				IDs: []string{fileA},
			})

			var forbidden *permission.ForbiddenError
			Expect(errors.As(err, &forbidden)).To(BeTrue())
			Expect(repo.deleteCalls).To(BeEmpty())
		})
	})
})

var _ = Describe("DetectFileType", func() {
	DescribeTable("classification",
		func(mimeType string, expected file.FileType) {
			fileType, err := file.DetectFileType(mimeType)
			Expect(err).NotTo(HaveOccurred())
			Expect(fileType).To(Equal(expected))
		},
		Entry("jpeg image", "image/jpeg", file.TypeImage),
		Entry("png image", "image/png", file.TypeImage),
		Entry("mp4 video", "video/mp4", file.TypeVideo),
		Entry("wav audio", "audio/wav", file.TypeAudio),
		Entry("pdf document", "application/pdf", file.TypeDocument),
		Entry("word document", "application/msword", file.TypeDocument),
		Entry("plain text", "text/plain", file.TypeDocument),
		Entry("spreadsheet", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.TypeDocument),
		Entry("zip archive", "application/zip", file.TypeArchive),
		Entry("gzip archive", "application/gzip", file.TypeArchive),
	)

	It("should fail on an unknown mime type", func() {
		_, err := file.DetectFileType("application/octet-stream")

		var appErr *internal.AppError
		Expect(errors.As(err, &appErr)).To(BeTrue())
	})
})

var _ = Describe("ValidateUpload", func() {
	allowed := internal.DefaultAllowedMimeTypes

	It("should accept a file inside every limit", func() {
		err := file.ValidateUpload("photo.jpg", "image/jpeg", 1024, internal.DefaultMaxFileSize, allowed)

		Expect(err).NotTo(HaveOccurred())
	})

	It("should aggregate every violation into one error", func() {
		err := file.ValidateUpload("", "application/unknown", internal.DefaultMaxFileSize+1, internal.DefaultMaxFileSize, allowed)

		var appErr *internal.AppError
		Expect(errors.As(err, &appErr)).To(BeTrue())

		details, ok := appErr.Details.([]string)
		Expect(ok).To(BeTrue())
		Expect(len(details)).To(BeNumerically(">=", 3))
	})

	It("should reject an archive even when its mime type is whitelisted", func() {
		err := file.ValidateUpload("backup.zip", "application/zip", 1024,
			internal.DefaultMaxFileSize, append(append([]string{}, allowed...), "application/zip"))

		var appErr *internal.AppError
		Expect(errors.As(err, &appErr)).To(BeTrue())
		details, ok := appErr.Details.([]string)
		Expect(ok).To(BeTrue())
		Expect(details).To(ContainElement(ContainSubstring("archive")))
	})
})

var _ = Describe("GenerateUploadPath", func() {
	It("should scope keys by user and sanitize the file name", func() {
		key := file.GenerateUploadPath("uploads", "my photo (1).jpg", "user-1")

		Expect(key).To(HavePrefix("uploads/user-1/"))
		Expect(key).To(HaveSuffix(".jpg"))
		Expect(key).NotTo(ContainSubstring(" "))
		Expect(key).NotTo(ContainSubstring("("))
	})

	It("should produce distinct keys for the same file name", func() {
		first := file.GenerateUploadPath("uploads", "photo.jpg", "user-1")
		second := file.GenerateUploadPath("uploads", "photo.jpg", "user-1")

		Expect(first).NotTo(Equal(second))
	})
})
