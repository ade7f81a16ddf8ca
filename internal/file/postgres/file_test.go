package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/farm-management/internal/file"
)

func TestFileRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "FileRepository Suite")
}

// SQLiteFile mirrors the files table with sqlite-friendly column types.
type SQLiteFile struct {
	ID               string    `gorm:"primaryKey"`
	FileName         string    `gorm:"column:file_name;not null"`
	OriginalFileName string    `gorm:"column:original_file_name;not null"`
	FileSize         int64     `gorm:"column:file_size;not null"`
	MimeType         string    `gorm:"column:mime_type;not null"`
	FileType         string    `gorm:"column:file_type;not null"`
	UploadPath       string    `gorm:"column:upload_path;not null"`
	URL              string    `gorm:"column:url;not null"`
	UploadedAt       time.Time `gorm:"column:uploaded_at"`
	UploadedBy       string    `gorm:"column:uploaded_by;not null"`
	Metadata         string    `gorm:"column:metadata"`
}

func (SQLiteFile) TableName() string {
	return "files"
}

var _ = Describe("FileRepository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo file.Repository
	)

	newFile := func(id, ownerID string, fileType file.FileType) *file.File {
		return &file.File{
			ID:               id,
			FileName:         "uploads/" + ownerID + "/" + id + ".jpg",
			OriginalFileName: id + ".jpg",
			FileSize:         2048,
			MimeType:         "image/jpeg",
			FileType:         fileType,
			UploadPath:       "uploads/" + ownerID + "/" + id + ".jpg",
			URL:              "/images/uploads/" + ownerID + "/" + id + ".jpg",
			UploadedAt:       time.Now(),
			UploadedBy:       ownerID,
			Metadata:         file.Metadata{"userAgent": "test"},
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteFile{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewFileRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Create and FetchByIDs", func() {
		It("should persist a file record and read it back", func() {
			Expect(repo.Create(ctx, newFile("file-1", "user-1", file.TypeImage))).To(Succeed())

			found, err := repo.FetchByIDs(ctx, []string{"file-1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].UploadedBy).To(Equal("user-1"))
			Expect(found[0].Metadata).To(HaveKeyWithValue("userAgent", "test"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(repo.Create(ctx, newFile("file-1", "user-1", file.TypeImage))).To(Succeed())
			Expect(repo.Create(ctx, newFile("file-2", "user-2", file.TypeImage))).To(Succeed())

			doc := newFile("file-3", "user-1", file.TypeDocument)
			doc.MimeType = "application/pdf"
			Expect(repo.Create(ctx, doc)).To(Succeed())
		})

		It("should return every file without filters", func() {
			found, err := repo.List(ctx, file.ListFilters{})

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(3))
		})

		It("should filter by uploader", func() {
			found, err := repo.List(ctx, file.ListFilters{UploadedBy: "user-1"})

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(2))
		})

		It("should filter by file type", func() {
			found, err := repo.List(ctx, file.ListFilters{FileType: file.TypeDocument})

			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal("file-3"))
		})
	})

	Describe("UpdateByID", func() {
		It("should patch the original file name", func() {
			Expect(repo.Create(ctx, newFile("file-1", "user-1", file.TypeImage))).To(Succeed())

			newName := "renamed.jpg"
			updated, err := repo.UpdateByID(ctx, "file-1", file.UpdateFileData{OriginalFileName: &newName})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeTrue())

			found, err := repo.FetchByIDs(ctx, []string{"file-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found[0].OriginalFileName).To(Equal("renamed.jpg"))
		})

		It("should report false for a missing id", func() {
			newName := "renamed.jpg"
			updated, err := repo.UpdateByID(ctx, "missing", file.UpdateFileData{OriginalFileName: &newName})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeFalse())
		})

		It("should probe existence when the patch is empty", func() {
			Expect(repo.Create(ctx, newFile("file-1", "user-1", file.TypeImage))).To(Succeed())

			updated, err := repo.UpdateByID(ctx, "file-1", file.UpdateFileData{})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeTrue())

			updated, err = repo.UpdateByID(ctx, "missing", file.UpdateFileData{})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeFalse())
		})
	})

	Describe("DeleteByID", func() {
		It("should delete the row and report it", func() {
			Expect(repo.Create(ctx, newFile("file-1", "user-1", file.TypeImage))).To(Succeed())

			deleted, err := repo.DeleteByID(ctx, "file-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			found, err := repo.FetchByIDs(ctx, []string{"file-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})

		It("should report false for a missing id", func() {
			deleted, err := repo.DeleteByID(ctx, "missing")

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})
	})
})
