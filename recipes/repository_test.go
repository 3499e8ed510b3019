package recipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebook/database"
	"recipebook/models"
)

func aggregateFrom(input RecipeInput) *Aggregate {
	agg := &Aggregate{
		Recipe: models.Recipe{
			Title:       input.Title,
			Description: input.Description,
			PrepTime:    input.PrepTime,
			CookTime:    input.CookTime,
			Servings:    input.Servings,
		},
		CategoryIDs: input.CategoryIDs,
	}
	for _, ing := range input.Ingredients {
		agg.Ingredients = append(agg.Ingredients, models.Ingredient{Name: ing.Name, Quantity: *ing.Quantity, Unit: ing.Unit})
	}
	for _, in := range input.Instructions {
		agg.Steps = append(agg.Steps, Step{Description: in.Description, KeepImageIDs: in.ImageIDs})
	}
	return agg
}

func TestRepository_CreateAndFindDeep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	italian := categoryID(t, db, "Italian")
	vietnam := categoryID(t, db, "Việt Nam")
	agg := aggregateFrom(sampleInput(vietnam, italian, vietnam))
	agg.Steps[1].Images = []models.InstructionImage{
		{Filename: "a.jpg", OriginalName: "broth.jpg", MIMEType: "image/jpeg", Path: "/uploads/2024-05/a.jpg", Size: 3},
	}

	id, err := repo.CreateAggregate(ctx, agg)
	require.NoError(t, err)

	recipe, err := repo.FindByID(ctx, id, true)
	require.NoError(t, err)

	assert.Equal(t, "Phở bò", recipe.Title)
	require.Len(t, recipe.Ingredients, 3)
	assert.Equal(t, "Beef bones", recipe.Ingredients[0].Name)
	assert.InDelta(t, 0.5, recipe.Ingredients[1].Quantity, 0.001)

	require.Len(t, recipe.Instructions, 3)
	for i, step := range recipe.Instructions {
		assert.Equal(t, i+1, step.StepNumber)
	}
	assert.Equal(t, "Simmer the broth", recipe.Instructions[1].Description)
	require.Len(t, recipe.Instructions[1].Images, 1)
	assert.Equal(t, "broth.jpg", recipe.Instructions[1].Images[0].OriginalName)

	require.Len(t, recipe.Categories, 2)
	assert.Equal(t, "Italian", recipe.Categories[0].Name)
	assert.Equal(t, "Việt Nam", recipe.Categories[1].Name)
}

func TestRepository_FindByIDMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), 999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UnknownCategoryRollsBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	_, err := repo.CreateAggregate(context.Background(), aggregateFrom(sampleInput(categoryID(t, db, "Dessert"), 4242)))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Zero(t, countRows(t, db, &models.Recipe{}))
	assert.Zero(t, countRows(t, db, &models.Ingredient{}))
	assert.Zero(t, countRows(t, db, &models.Instruction{}))
}

func TestRepository_FindAllFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	italian := categoryID(t, db, "Italian")
	dessert := categoryID(t, db, "Dessert")

	create := func(title, description string, age time.Duration, categories ...uint) uint {
		in := sampleInput(categories...)
		in.Title = title
		in.Description = description
		id, err := repo.CreateAggregate(ctx, aggregateFrom(in))
		require.NoError(t, err)
		backdate(t, db, id, age)
		return id
	}

	tiramisu := create("Tiramisu", "Coffee dessert", 3*time.Hour, italian, dessert)
	lasagne := create("Lasagne", "Baked pasta", 2*time.Hour, italian)
	flan := create("Flan", "Caramel custard with 100% cream", time.Hour, dessert)
	banhMi := create("Bánh Mì Ốp La", "Fried egg sandwich", 4*time.Hour)

	titles := func(filter Filter) []uint {
		list, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		ids := make([]uint, len(list))
		for i, r := range list {
			ids[i] = r.ID
		}
		return ids
	}

	assert.Equal(t, []uint{flan, lasagne, tiramisu, banhMi}, titles(Filter{}))
	assert.Equal(t, []uint{tiramisu}, titles(Filter{Search: "COFFEE"}))
	assert.Equal(t, []uint{lasagne}, titles(Filter{Search: "lasa"}))
	assert.Equal(t, []uint{lasagne, tiramisu}, titles(Filter{Category: "Italian"}))
	assert.Equal(t, []uint{tiramisu}, titles(Filter{Search: "tira", Category: "Dessert"}))
	assert.Empty(t, titles(Filter{Search: "flan", Category: "Italian"}))
	assert.Empty(t, titles(Filter{Category: "Klingon"}))
	assert.Equal(t, []uint{flan}, titles(Filter{Search: "100%"}))
	assert.Empty(t, titles(Filter{Search: "_"}))

	for _, term := range []string{"Ốp La", "ốp la", "Bánh", "BÁNH MÌ", "bánh mì"} {
		assert.Equal(t, []uint{banhMi}, titles(Filter{Search: term}), term)
	}

	list, err := repo.FindAll(ctx, Filter{Search: "tiramisu"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Categories, 2)
	assert.Equal(t, "Dessert", list[0].Categories[0].Name)
}

func TestRepository_ReplaceIsFullReplace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id, err := repo.CreateAggregate(ctx, aggregateFrom(sampleInput(categoryID(t, db, "Italian"))))
	require.NoError(t, err)

	in := sampleInput(categoryID(t, db, "Indian"))
	in.Title = "Phở gà"
	in.Ingredients = in.Ingredients[:1]
	in.Instructions = []InstructionInput{{Description: "Only step"}}

	for i := 0; i < 2; i++ {
		_, err = repo.ReplaceAggregate(ctx, id, aggregateFrom(in), nil)
		require.NoError(t, err)

		recipe, err := repo.FindByID(ctx, id, true)
		require.NoError(t, err)
		assert.Equal(t, "Phở gà", recipe.Title)
		require.Len(t, recipe.Ingredients, 1)
		require.Len(t, recipe.Instructions, 1)
		assert.Equal(t, 1, recipe.Instructions[0].StepNumber)
		require.Len(t, recipe.Categories, 1)
		assert.Equal(t, "Indian", recipe.Categories[0].Name)
	}

	assert.Equal(t, int64(1), countRows(t, db, &models.Ingredient{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.Instruction{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.RecipeCategory{}))
}

func TestRepository_ReplaceMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.ReplaceAggregate(context.Background(), 7, aggregateFrom(sampleInput()), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ReplaceCarriesListedImages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agg := aggregateFrom(sampleInput())
	agg.Recipe.ImageURL = "/uploads/2024-05/main.jpg"
	agg.Steps[0].Images = []models.InstructionImage{
		{Filename: "keep.jpg", OriginalName: "keep.jpg", MIMEType: "image/jpeg", Path: "/uploads/2024-05/keep.jpg", Size: 1},
		{Filename: "drop.jpg", OriginalName: "drop.jpg", MIMEType: "image/jpeg", Path: "/uploads/2024-05/drop.jpg", Size: 1},
	}
	agg.Steps[1].Images = []models.InstructionImage{
		{Filename: "gone.jpg", OriginalName: "gone.jpg", MIMEType: "image/jpeg", Path: "/uploads/2024-05/gone.jpg", Size: 1},
	}
	id, err := repo.CreateAggregate(ctx, agg)
	require.NoError(t, err)

	before, err := repo.FindByID(ctx, id, true)
	require.NoError(t, err)
	keepID := before.Instructions[0].Images[0].ID
	dropID := before.Instructions[0].Images[1].ID

	in := sampleInput()
	in.Instructions = []InstructionInput{
		{Description: "New first step"},
		{Description: "Moved image", ImageIDs: []uint{keepID, dropID}},
	}
	result, err := repo.ReplaceAggregate(ctx, id, aggregateFrom(in), []uint{dropID})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"/uploads/2024-05/drop.jpg", "/uploads/2024-05/gone.jpg"}, result.RemovedPaths)

	after, err := repo.FindByID(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/2024-05/main.jpg", after.ImageURL)
	require.Len(t, after.Instructions, 2)
	assert.Empty(t, after.Instructions[0].Images)
	require.Len(t, after.Instructions[1].Images, 1)
	assert.Equal(t, keepID, after.Instructions[1].Images[0].ID)
	assert.Equal(t, int64(1), countRows(t, db, &models.InstructionImage{}))
}

func TestRepository_ReplaceMainImage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agg := aggregateFrom(sampleInput())
	agg.Recipe.ImageURL = "/uploads/2024-05/old.jpg"
	id, err := repo.CreateAggregate(ctx, agg)
	require.NoError(t, err)

	next := aggregateFrom(sampleInput())
	next.Recipe.ImageURL = "/uploads/2024-06/new.jpg"
	next.ReplaceImage = true
	result, err := repo.ReplaceAggregate(ctx, id, next, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/2024-05/old.jpg"}, result.RemovedPaths)

	recipe, err := repo.FindByID(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/2024-06/new.jpg", recipe.ImageURL)
}

func TestRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agg := aggregateFrom(sampleInput(categoryID(t, db, "Mexican")))
	agg.Recipe.ImageURL = "/uploads/2024-05/main.jpg"
	agg.Steps[2].Images = []models.InstructionImage{
		{Filename: "s.jpg", OriginalName: "s.jpg", MIMEType: "image/jpeg", Path: "/uploads/2024-05/s.jpg", Size: 1},
	}
	id, err := repo.CreateAggregate(ctx, agg)
	require.NoError(t, err)
	other, err := repo.CreateAggregate(ctx, aggregateFrom(sampleInput(categoryID(t, db, "Mexican"))))
	require.NoError(t, err)

	paths, err := repo.DeleteAggregate(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/uploads/2024-05/main.jpg", "/uploads/2024-05/s.jpg"}, paths)

	_, err = repo.FindByID(ctx, id, false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(3), countRows(t, db, &models.Ingredient{}))
	assert.Equal(t, int64(3), countRows(t, db, &models.Instruction{}))
	assert.Zero(t, countRows(t, db, &models.InstructionImage{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.RecipeCategory{}))
	assert.Equal(t, int64(len(database.DefaultCategories)), countRows(t, db, &models.Category{}))

	_, err = repo.FindByID(ctx, other, true)
	require.NoError(t, err)

	_, err = repo.DeleteAggregate(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
