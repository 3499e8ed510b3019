package recipes

import (
	"context"
	"errors"
	"fmt"
	"log"

	"recipebook/media"
	"recipebook/models"
)

// Invalidator drops cached renderings of a recipe after it changed.
type Invalidator interface {
	InvalidateRecipe(id uint)
}

type (
	Service interface {
		List(ctx context.Context, filter Filter) ([]models.Recipe, error)
		Get(ctx context.Context, id uint) (*models.Recipe, error)
		Categories(ctx context.Context) ([]models.Category, error)
		Create(ctx context.Context, input RecipeInput, uploads Uploads) (*models.Recipe, error)
		Update(ctx context.Context, id uint, input RecipeInput, uploads Uploads) (*models.Recipe, error)
		Delete(ctx context.Context, id uint) error
	}

	service struct {
		repo        Repository
		store       media.Store
		invalidator Invalidator
	}
)

// NewService wires the aggregate service. invalidator may be nil.
func NewService(repo Repository, store media.Store, invalidator Invalidator) Service {
	return &service{repo: repo, store: store, invalidator: invalidator}
}

func (s *service) List(ctx context.Context, filter Filter) ([]models.Recipe, error) {
	recipes, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, storageErr("list", err)
	}
	return recipes, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Recipe, error) {
	recipe, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, storageErr("get", err)
	}
	return recipe, nil
}

func (s *service) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, storageErr("categories", err)
	}
	return categories, nil
}

func (s *service) Create(ctx context.Context, input RecipeInput, uploads Uploads) (*models.Recipe, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := uploads.Validate(); err != nil {
		return nil, err
	}

	agg, stored, err := s.buildAggregate(ctx, input, uploads)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.CreateAggregate(ctx, agg)
	if err != nil {
		s.cleanup(ctx, stored...)
		return nil, storageErr("create", err)
	}

	return s.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id uint, input RecipeInput, uploads Uploads) (*models.Recipe, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := uploads.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, id, false); err != nil {
		return nil, storageErr("update", err)
	}

	agg, stored, err := s.buildAggregate(ctx, input, uploads)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.ReplaceAggregate(ctx, id, agg, input.DeletedImageIDs)
	if err != nil {
		s.cleanup(ctx, stored...)
		return nil, storageErr("update", err)
	}

	s.cleanup(ctx, result.RemovedPaths...)
	s.invalidate(id)

	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	paths, err := s.repo.DeleteAggregate(ctx, id)
	if err != nil {
		return storageErr("delete", err)
	}

	s.cleanup(ctx, paths...)
	s.invalidate(id)
	return nil
}

// cleanup removes files even when the request that led here was canceled.
func (s *service) cleanup(ctx context.Context, paths ...string) {
	media.Cleanup(context.WithoutCancel(ctx), s.store, paths...)
}

func (s *service) invalidate(id uint) {
	if s.invalidator != nil {
		s.invalidator.InvalidateRecipe(id)
	}
}

// buildAggregate stores every upload and returns the aggregate referencing
// them together with the stored paths. On failure nothing stays behind.
func (s *service) buildAggregate(ctx context.Context, input RecipeInput, uploads Uploads) (*Aggregate, []string, error) {
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
		agg.Ingredients = append(agg.Ingredients, models.Ingredient{
			Name:     ing.Name,
			Quantity: *ing.Quantity,
			Unit:     ing.Unit,
		})
	}

	var stored []string
	fail := func(op string, err error) (*Aggregate, []string, error) {
		s.cleanup(ctx, stored...)
		return nil, nil, storageErr(op, err)
	}

	if uploads.RecipeImage != nil {
		file, err := s.storeUpload(ctx, *uploads.RecipeImage)
		if err != nil {
			return fail("store recipe image", err)
		}
		stored = append(stored, file.Path)
		agg.Recipe.ImageURL = file.Path
		agg.ReplaceImage = true
	}

	for i, in := range input.Instructions {
		step := Step{
			Description:  in.Description,
			KeepImageIDs: in.ImageIDs,
		}
		for _, up := range uploads.StepImages[i+1] {
			file, err := s.storeUpload(ctx, up)
			if err != nil {
				return fail(fmt.Sprintf("store step %d image", i+1), err)
			}
			stored = append(stored, file.Path)
			step.Images = append(step.Images, models.InstructionImage{
				Filename:     file.Filename,
				OriginalName: up.Filename,
				MIMEType:     up.MIMEType,
				Path:         file.Path,
				Size:         file.Size,
			})
		}
		agg.Steps = append(agg.Steps, step)
	}

	if extra := len(uploads.StepImages) - countSteps(uploads, len(input.Instructions)); extra > 0 {
		log.Printf("recipes: ignoring images for %d step(s) without an instruction", extra)
	}

	return agg, stored, nil
}

func (s *service) storeUpload(ctx context.Context, up media.Upload) (media.StoredFile, error) {
	data, err := up.ReadAll()
	if errors.Is(err, media.ErrFileTooLarge) {
		return media.StoredFile{}, invalid("%v", err)
	}
	if err != nil {
		return media.StoredFile{}, err
	}
	return s.store.Store(ctx, data, up.Filename, up.MIMEType)
}

// countSteps counts upload keys that map to an existing step.
func countSteps(uploads Uploads, steps int) int {
	n := 0
	for step := range uploads.StepImages {
		if step >= 1 && step <= steps {
			n++
		}
	}
	return n
}
