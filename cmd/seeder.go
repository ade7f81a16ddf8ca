package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/farm-management/internal/auth"
	"github.com/frahmantamala/farm-management/internal/farmer"
	"github.com/frahmantamala/farm-management/internal/permission"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"files", "farmers", "users"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		adminID := seedAccount(gormDB, "admin@farm.local", "Farm Admin", string(hash), permission.RoleAdmin)
		userID := seedAccount(gormDB, "nimal@farm.local", "Nimal Perera", string(hash), permission.RoleUser)

		seedFarmer(gormDB, userID, farmer.Farmer{
			Name:            "Nimal Perera",
			Email:           "nimal@farm.local",
			Phone:           "+94771234567",
			Address:         "Galle Road, Galle",
			ExperienceLevel: farmer.ExperienceIntermediate,
			Location: &farmer.Location{
				Lat: 6.0535, Lng: 80.2210, District: "galle", Province: "southern",
			},
			FarmingMethods:        farmer.StringList{"organic"},
			CommunicationChannels: farmer.StringList{"sms", "whatsapp"},
			CropPreferences:       farmer.StringList{"paddy", "vegetables"},
		})
		seedFarmer(gormDB, adminID, farmer.Farmer{
			Name:            "Kumari Silva",
			Email:           "kumari@farm.local",
			Phone:           "+94712345678",
			Address:         "Main Street, Colombo",
			ExperienceLevel: farmer.ExperienceExpert,
			Location: &farmer.Location{
				Lat: 6.9271, Lng: 79.8612, District: "colombo", Province: "western",
			},
			FarmingMethods:        farmer.StringList{"integrated"},
			CommunicationChannels: farmer.StringList{"email"},
			CropPreferences:       farmer.StringList{"fruits"},
		})

		fmt.Println("Seeding complete")
	},
}

func seedAccount(db *gorm.DB, email, name, passwordHash string, role permission.Role) string {
	var existing auth.Account
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Println("account already exists:", email)
		return existing.ID
	}

	account := auth.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&account).Error; err != nil {
		log.Fatalf("failed to seed account %s: %v", email, err)
	}
	fmt.Println("Seeded account:", email, "role:", role)
	return account.ID
}

func seedFarmer(db *gorm.DB, ownerID string, f farmer.Farmer) {
	var count int64
	db.Model(&farmer.Farmer{}).Where("email = ?", f.Email).Count(&count)
	if count > 0 {
		fmt.Println("farmer already exists:", f.Email)
		return
	}

	f.ID = uuid.NewString()
	f.UserID = ownerID
	f.IsActive = true
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	if err := db.Create(&f).Error; err != nil {
		log.Fatalf("failed to seed farmer %s: %v", f.Email, err)
	}
	fmt.Println("Seeded farmer:", f.Name)
}
