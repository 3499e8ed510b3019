package recipes

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipebook/models"
)

type (
	Repository interface {
		FindAll(ctx context.Context, filter Filter) ([]models.Recipe, error)
		FindByID(ctx context.Context, id uint, deep bool) (*models.Recipe, error)
		CreateAggregate(ctx context.Context, agg *Aggregate) (uint, error)
		ReplaceAggregate(ctx context.Context, id uint, agg *Aggregate, deletedImageIDs []uint) (*ReplaceResult, error)
		DeleteAggregate(ctx context.Context, id uint) ([]string, error)
		Categories(ctx context.Context) ([]models.Category, error)
	}

	// Aggregate is the full desired state of a recipe. Image files referenced
	// here are already stored.
	Aggregate struct {
		Recipe       models.Recipe // scalar fields only
		ReplaceImage bool          // on replace, overwrite Recipe.ImageURL
		Ingredients  []models.Ingredient
		Steps        []Step
		CategoryIDs  []uint
	}

	Step struct {
		Description  string
		Images       []models.InstructionImage // newly stored
		KeepImageIDs []uint                    // existing images carried over on replace
	}

	ReplaceResult struct {
		// RemovedPaths are files no longer referenced once the transaction
		// committed.
		RemovedPaths []string
	}

	repository struct {
		db *gorm.DB
	}
)

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Scopes(filter.Scope).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("categories.name ASC")
		}).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *repository) FindByID(ctx context.Context, id uint, deep bool) (*models.Recipe, error) {
	return findRecipe(r.db.WithContext(ctx), id, deep)
}

func findRecipe(db *gorm.DB, id uint, deep bool) (*models.Recipe, error) {
	if deep {
		db = db.
			Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
				return db.Order("ingredients.id ASC")
			}).
			Preload("Instructions", func(db *gorm.DB) *gorm.DB {
				return db.Order("instructions.step_number ASC")
			}).
			Preload("Instructions.Images", func(db *gorm.DB) *gorm.DB {
				return db.Order("instruction_images.id ASC")
			}).
			Preload("Categories", func(db *gorm.DB) *gorm.DB {
				return db.Order("categories.name ASC")
			})
	}

	var recipe models.Recipe
	if err := db.First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *repository) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) CreateAggregate(ctx context.Context, agg *Aggregate) (uint, error) {
	var id uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe := models.Recipe{
			Title:       agg.Recipe.Title,
			Description: agg.Recipe.Description,
			ImageURL:    agg.Recipe.ImageURL,
			PrepTime:    agg.Recipe.PrepTime,
			CookTime:    agg.Recipe.CookTime,
			Servings:    agg.Recipe.Servings,
		}
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}

		if err := insertIngredients(tx, recipe.ID, agg.Ingredients); err != nil {
			return err
		}
		if _, err := insertSteps(tx, recipe.ID, agg.Steps, nil); err != nil {
			return err
		}
		if err := linkCategories(tx, recipe.ID, agg.CategoryIDs); err != nil {
			return err
		}

		id = recipe.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) ReplaceAggregate(ctx context.Context, id uint, agg *Aggregate, deletedImageIDs []uint) (*ReplaceResult, error) {
	result := &ReplaceResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		recipe, err := findRecipe(locked, id, false)
		if err != nil {
			return err
		}

		imageURL := recipe.ImageURL
		if agg.ReplaceImage {
			if recipe.ImageURL != "" && recipe.ImageURL != agg.Recipe.ImageURL {
				result.RemovedPaths = append(result.RemovedPaths, recipe.ImageURL)
			}
			imageURL = agg.Recipe.ImageURL
		}

		err = tx.Model(recipe).
			Select("title", "description", "image_url", "prep_time", "cook_time", "servings", "updated_at").
			Updates(models.Recipe{
				Title:       agg.Recipe.Title,
				Description: agg.Recipe.Description,
				ImageURL:    imageURL,
				PrepTime:    agg.Recipe.PrepTime,
				CookTime:    agg.Recipe.CookTime,
				Servings:    agg.Recipe.Servings,
				UpdatedAt:   time.Now(),
			}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		if err := insertIngredients(tx, id, agg.Ingredients); err != nil {
			return err
		}

		var oldStepIDs []uint
		if err := tx.Model(&models.Instruction{}).Where("recipe_id = ?", id).Pluck("id", &oldStepIDs).Error; err != nil {
			return err
		}

		if len(deletedImageIDs) > 0 && len(oldStepIDs) > 0 {
			paths, err := deleteImages(tx, "id IN ? AND instruction_id IN ?", deletedImageIDs, oldStepIDs)
			if err != nil {
				return err
			}
			result.RemovedPaths = append(result.RemovedPaths, paths...)
		}

		if _, err := insertSteps(tx, id, agg.Steps, oldStepIDs); err != nil {
			return err
		}

		if len(oldStepIDs) > 0 {
			paths, err := deleteImages(tx, "instruction_id IN ?", oldStepIDs)
			if err != nil {
				return err
			}
			result.RemovedPaths = append(result.RemovedPaths, paths...)

			if err := tx.Where("id IN ?", oldStepIDs).Delete(&models.Instruction{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeCategory{}).Error; err != nil {
			return err
		}
		return linkCategories(tx, id, agg.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) DeleteAggregate(ctx context.Context, id uint) ([]string, error) {
	var paths []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := findRecipe(tx, id, false)
		if err != nil {
			return err
		}
		if recipe.ImageURL != "" {
			paths = append(paths, recipe.ImageURL)
		}

		var stepIDs []uint
		if err := tx.Model(&models.Instruction{}).Where("recipe_id = ?", id).Pluck("id", &stepIDs).Error; err != nil {
			return err
		}
		if len(stepIDs) > 0 {
			imagePaths, err := deleteImages(tx, "instruction_id IN ?", stepIDs)
			if err != nil {
				return err
			}
			paths = append(paths, imagePaths...)
		}

		if err := tx.Where("recipe_id = ?", id).Delete(&models.Instruction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func insertIngredients(tx *gorm.DB, recipeID uint, ingredients []models.Ingredient) error {
	if len(ingredients) == 0 {
		return nil
	}
	rows := make([]models.Ingredient, len(ingredients))
	for i, ing := range ingredients {
		rows[i] = models.Ingredient{
			RecipeID: recipeID,
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		}
	}
	return tx.Create(&rows).Error
}

// insertSteps numbers steps by position. Kept image ids are only honoured when
// they hang off one of carryFrom, the recipe's previous instructions.
func insertSteps(tx *gorm.DB, recipeID uint, steps []Step, carryFrom []uint) ([]models.Instruction, error) {
	created := make([]models.Instruction, 0, len(steps))
	for i, step := range steps {
		instruction := models.Instruction{
			RecipeID:    recipeID,
			StepNumber:  i + 1,
			Description: step.Description,
		}
		if err := tx.Omit(clause.Associations).Create(&instruction).Error; err != nil {
			return nil, err
		}

		if len(step.Images) > 0 {
			images := make([]models.InstructionImage, len(step.Images))
			for j, img := range step.Images {
				img.ID = 0
				img.InstructionID = instruction.ID
				images[j] = img
			}
			if err := tx.Create(&images).Error; err != nil {
				return nil, err
			}
		}

		if len(step.KeepImageIDs) > 0 && len(carryFrom) > 0 {
			err := tx.Model(&models.InstructionImage{}).
				Where("id IN ? AND instruction_id IN ?", step.KeepImageIDs, carryFrom).
				Update("instruction_id", instruction.ID).Error
			if err != nil {
				return nil, err
			}
		}

		created = append(created, instruction)
	}
	return created, nil
}

// deleteImages removes the images matched by the condition and returns their
// paths.
func deleteImages(tx *gorm.DB, query string, args ...interface{}) ([]string, error) {
	var images []models.InstructionImage
	if err := tx.Where(query, args...).Find(&images).Error; err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(images))
	paths := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
		paths[i] = img.Path
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.InstructionImage{}).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

// linkCategories associates existing categories only; unknown ids are a
// validation error.
func linkCategories(tx *gorm.DB, recipeID uint, categoryIDs []uint) error {
	ids := uniqueIDs(categoryIDs)
	if len(ids) == 0 {
		return nil
	}

	var found int64
	if err := tx.Model(&models.Category{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return err
	}
	if found != int64(len(ids)) {
		return invalid("categoryIds references an unknown category")
	}

	links := make([]models.RecipeCategory, len(ids))
	for i, categoryID := range ids {
		links[i] = models.RecipeCategory{RecipeID: recipeID, CategoryID: categoryID}
	}
	return tx.Create(&links).Error
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
