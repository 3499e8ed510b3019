package recipes

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebook/database"
	"recipebook/media"
	"recipebook/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.SeedCategories(db))
	return db
}

func setupTestStore(t *testing.T) *media.DiskStore {
	store, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func categoryID(t *testing.T, db *gorm.DB, name string) uint {
	var c models.Category
	require.NoError(t, db.Where("name = ?", name).First(&c).Error)
	return c.ID
}

func quantity(v float64) *float64 {
	return &v
}

func sampleInput(categoryIDs ...uint) RecipeInput {
	return RecipeInput{
		Title:       "Phở bò",
		Description: "Beef noodle soup",
		PrepTime:    30,
		CookTime:    180,
		Servings:    4,
		Ingredients: []IngredientInput{
			{Name: "Beef bones", Quantity: quantity(2), Unit: "kg"},
			{Name: "Rice noodles", Quantity: quantity(0.5), Unit: "kg"},
			{Name: "Star anise", Quantity: quantity(3), Unit: "pcs"},
		},
		Instructions: []InstructionInput{
			{Description: "Blanch the bones"},
			{Description: "Simmer the broth"},
			{Description: "Serve over noodles"},
		},
		CategoryIDs: categoryIDs,
	}
}

func imageUpload(name string, data string) media.Upload {
	return media.Upload{
		Filename: name,
		MIMEType: "image/jpeg",
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(data))), nil
		},
	}
}

func fileExists(t *testing.T, store media.Store, path string) bool {
	ok, err := store.Exists(context.Background(), path)
	require.NoError(t, err)
	return ok
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// backdate spreads created_at so list ordering is deterministic.
func backdate(t *testing.T, db *gorm.DB, id uint, age time.Duration) {
	require.NoError(t, db.Model(&models.Recipe{}).Where("id = ?", id).
		UpdateColumn("created_at", time.Now().Add(-age)).Error)
}
