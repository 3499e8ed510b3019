package api

import (
	"time"

	"recipebook/models"
)

type (
	categoryResponse struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	recipeSummary struct {
		ID          uint               `json:"id"`
		Title       string             `json:"title"`
		Description string             `json:"description"`
		ImageURL    *string            `json:"image_url"`
		PrepTime    int                `json:"prep_time"`
		CookTime    int                `json:"cook_time"`
		Servings    int                `json:"servings"`
		CreatedAt   time.Time          `json:"created_at"`
		UpdatedAt   time.Time          `json:"updated_at"`
		Categories  []categoryResponse `json:"categories"`
	}

	ingredientResponse struct {
		ID       uint    `json:"id"`
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	}

	imageResponse struct {
		ID           uint   `json:"id"`
		Filename     string `json:"filename"`
		OriginalName string `json:"original_name"`
		MIMEType     string `json:"mimetype"`
		Path         string `json:"path"`
		Size         int64  `json:"size"`
	}

	instructionResponse struct {
		ID          uint            `json:"id"`
		StepNumber  int             `json:"step_number"`
		Description string          `json:"description"`
		Images      []imageResponse `json:"images"`
	}

	recipeDetail struct {
		recipeSummary
		Ingredients  []ingredientResponse  `json:"ingredients"`
		Instructions []instructionResponse `json:"instructions"`
	}
)

func newCategories(categories []models.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	return out
}

func newSummary(r models.Recipe) recipeSummary {
	s := recipeSummary{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		PrepTime:    r.PrepTime,
		CookTime:    r.CookTime,
		Servings:    r.Servings,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Categories:  newCategories(r.Categories),
	}
	if r.ImageURL != "" {
		url := r.ImageURL
		s.ImageURL = &url
	}
	return s
}

func newSummaries(recipes []models.Recipe) []recipeSummary {
	out := make([]recipeSummary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, newSummary(r))
	}
	return out
}

func newDetail(r *models.Recipe) recipeDetail {
	d := recipeDetail{
		recipeSummary: newSummary(*r),
		Ingredients:   make([]ingredientResponse, 0, len(r.Ingredients)),
		Instructions:  make([]instructionResponse, 0, len(r.Instructions)),
	}
	for _, ing := range r.Ingredients {
		d.Ingredients = append(d.Ingredients, ingredientResponse{
			ID:       ing.ID,
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
	}
	for _, step := range r.Instructions {
		in := instructionResponse{
			ID:          step.ID,
			StepNumber:  step.StepNumber,
			Description: step.Description,
			Images:      make([]imageResponse, 0, len(step.Images)),
		}
		for _, img := range step.Images {
			in.Images = append(in.Images, imageResponse{
				ID:           img.ID,
				Filename:     img.Filename,
				OriginalName: img.OriginalName,
				MIMEType:     img.MIMEType,
				Path:         img.Path,
				Size:         img.Size,
			})
		}
		d.Instructions = append(d.Instructions, in)
	}
	return d
}
