package database

import (
	"log"

	"recipebook/models"

	"gorm.io/gorm"
)

// DefaultCategories are created on first boot. Recipes only ever reference
// existing categories.
var DefaultCategories = []string{
	"Italian",
	"Chinese",
	"Mexican",
	"Indian",
	"Vegetarian",
	"Dessert",
	"Việt Nam",
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.SetupJoinTable(&models.Recipe{}, "Categories", &models.RecipeCategory{}); err != nil {
		log.Printf("Error registering recipe_categories join table: %v", err)
		return err
	}

	if err := db.AutoMigrate(models.Tables()...); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}

// SeedCategories inserts the default categories that are missing. Running it
// again is a no-op.
func SeedCategories(db *gorm.DB) error {
	for _, name := range DefaultCategories {
		category := models.Category{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&category).Error; err != nil {
			log.Printf("Error seeding category %q: %v", name, err)
			return err
		}
	}

	log.Printf("Seeded %d default categories", len(DefaultCategories))
	return nil
}
