package main

import (
	"fmt"
	"log"

	"railzway-console/shared/config"
	"railzway-console/shared/database"
	"railzway-console/shared/database/models"
	"railzway-console/shared/utils/id"
)

func main() {
	log.Println("🌱 Starting database seeding...")

	config.LoadConfig()
	if err := id.Init(); err != nil {
		log.Fatalf("Failed to initialize id generator: %v", err)
	}

	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := seedDemoAccount(); err != nil {
		log.Fatalf("Failed to seed demo account: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

// seedDemoAccount creates a demo user with one organization and a stopped
// instance, skipping anything that already exists.
func seedDemoAccount() error {
	db := database.GetDB()
	cfg := config.GetConfig()

	var user models.User
	err := db.Where("email = ?", "demo@railzway.com").First(&user).Error
	if err != nil {
		user = models.User{
			ID:        id.New(),
			Email:     "demo@railzway.com",
			FirstName: "Demo",
			LastName:  "User",
			Status:    "ACTIVE",
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
		log.Printf("🌱 Created demo user %d", user.ID)
	}

	var org models.Organization
	err = db.Where("slug = ?", "demo").First(&org).Error
	if err != nil {
		org = models.Organization{
			ID:      id.New(),
			OwnerID: user.ID,
			Name:    "Demo Organization",
			Slug:    "demo",
		}
		if err := db.Create(&org).Error; err != nil {
			return fmt.Errorf("failed to create demo org: %w", err)
		}
		log.Printf("🌱 Created demo organization %d", org.ID)
	}

	var count int64
	if err := db.Model(&models.Instance{}).Where("org_id = ?", org.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check demo instance: %w", err)
	}
	if count == 0 {
		inst := models.NewInstance(org.ID, models.TierFreeTrial, cfg.DefaultInstanceVersion)
		inst.ID = id.New()
		inst.JobID = fmt.Sprintf("railzway-org-%d", org.ID)
		inst.MarkStopped()
		if err := db.Create(inst).Error; err != nil {
			return fmt.Errorf("failed to create demo instance: %w", err)
		}
		log.Printf("🌱 Created demo instance %d (stopped)", inst.ID)
	}

	return nil
}
