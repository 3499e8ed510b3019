package recipes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"recipebook/media"
)

type (
	// RecipeInput is a create or update request after parsing. Every list is
	// the complete desired state.
	RecipeInput struct {
		Title           string `validate:"required,max=255"`
		Description     string
		PrepTime        int                `validate:"gte=0"`
		CookTime        int                `validate:"gte=0"`
		Servings        int                `validate:"gte=1"`
		Ingredients     []IngredientInput  `validate:"dive"`
		Instructions    []InstructionInput `validate:"dive"`
		CategoryIDs     []uint
		DeletedImageIDs []uint
	}

	IngredientInput struct {
		Name     string   `json:"name" validate:"required"`
		Quantity *float64 `json:"quantity" validate:"required,gte=0"`
		Unit     string   `json:"unit" validate:"required"`
	}

	// InstructionInput ignores any client step number: the position in the
	// list is the step number. ImageIDs names existing images of the same
	// recipe that move to this step on update.
	InstructionInput struct {
		StepNumber  *int   `json:"step_number,omitempty"`
		Description string `json:"description" validate:"required"`
		ImageIDs    []uint `json:"image_ids,omitempty"`
	}

	// Uploads holds the files of one request, keyed by 1-based step position.
	Uploads struct {
		RecipeImage *media.Upload
		StepImages  map[int][]media.Upload
	}
)

var validate = validator.New()

// UnmarshalJSON accepts the quantity as a JSON number or a numeric string
// such as "2.5".
func (in *IngredientInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string      `json:"name"`
		Quantity json.Number `json:"quantity"`
		Unit     string      `json:"unit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*in = IngredientInput{Name: raw.Name, Unit: raw.Unit}
	if raw.Quantity != "" {
		q, err := raw.Quantity.Float64()
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", raw.Quantity)
		}
		in.Quantity = &q
	}
	return nil
}

// ParseForm turns multipart form values into a RecipeInput or a
// *ValidationError naming the offending field.
func ParseForm(values map[string][]string) (RecipeInput, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	input := RecipeInput{
		Title:       get("title"),
		Description: get("description"),
	}

	var err error
	if input.PrepTime, err = parseInt("prep_time", get("prep_time")); err != nil {
		return RecipeInput{}, err
	}
	if input.CookTime, err = parseInt("cook_time", get("cook_time")); err != nil {
		return RecipeInput{}, err
	}
	if input.Servings, err = parseInt("servings", get("servings")); err != nil {
		return RecipeInput{}, err
	}

	if err := parseJSONList("ingredients", get("ingredients"), &input.Ingredients); err != nil {
		return RecipeInput{}, err
	}
	if err := parseJSONList("instructions", get("instructions"), &input.Instructions); err != nil {
		return RecipeInput{}, err
	}
	if err := parseJSONList("categoryIds", get("categoryIds"), &input.CategoryIDs); err != nil {
		return RecipeInput{}, err
	}
	if input.DeletedImageIDs, err = parseIDList("deleted_images", get("deleted_images")); err != nil {
		return RecipeInput{}, err
	}

	for i := range input.Ingredients {
		input.Ingredients[i].Name = strings.TrimSpace(input.Ingredients[i].Name)
		input.Ingredients[i].Unit = strings.TrimSpace(input.Ingredients[i].Unit)
	}
	for i := range input.Instructions {
		input.Instructions[i].Description = strings.TrimSpace(input.Instructions[i].Description)
	}

	if err := input.Validate(); err != nil {
		return RecipeInput{}, err
	}
	return input, nil
}

// Validate checks the struct tags and returns the first problem as a
// *ValidationError.
func (in RecipeInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("invalid recipe: %v", err)
	}

	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "RecipeInput.")
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", field)
	case "gte":
		return invalid("%s must be at least %s", field, fe.Param())
	case "max":
		return invalid("%s must be at most %s characters", field, fe.Param())
	default:
		return invalid("%s is invalid", field)
	}
}

// Validate checks every file before any of them is written.
func (u Uploads) Validate() error {
	if u.RecipeImage != nil {
		if err := u.RecipeImage.Validate(); err != nil {
			return invalid("recipe_image: %v", err)
		}
	}
	for step, files := range u.StepImages {
		for _, f := range files {
			if err := f.Validate(); err != nil {
				return invalid("instruction_images_%d: %v", step, err)
			}
		}
	}
	return nil
}

func parseInt(field, raw string) (int, error) {
	if raw == "" {
		return 0, invalid("%s is required", field)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be a whole number", field)
	}
	return n, nil
}

func parseJSONList(field, raw string, dst interface{}) error {
	if raw == "" {
		raw = "[]"
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return invalid("%s is not a valid JSON list: %v", field, err)
	}
	return nil
}

// parseIDList reads "3,7, 12".
func parseIDList(field, raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, invalid("%s contains an invalid id %q", field, part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ParseID reads a path id such as "/api/recipes/:id".
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, raw)
	}
	return uint(id), nil
}
