package api

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recipebook/media"
	"recipebook/recipes"
)

var (
	errMsgNotFound = "Recipe not found"
	errMsgInternal = "Something went wrong, please try again"
	errMsgForm     = "Invalid form data"
)

const (
	recipeImageField = "recipe_image"
	stepImagePrefix  = "instruction_images_"
)

type APIModule struct {
	service recipes.Service
}

func NewAPIModule(service recipes.Service) *APIModule {
	return &APIModule{service: service}
}

func (a *APIModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api")
	{
		group.GET("/recipes", a.listRecipes)
		group.GET("/recipes/:id", a.getRecipe)
		group.POST("/recipes", a.createRecipe)
		group.PUT("/recipes/:id", a.updateRecipe)
		group.DELETE("/recipes/:id", a.deleteRecipe)
		group.GET("/categories", a.listCategories)
	}
}

func (a *APIModule) listRecipes(c *gin.Context) {
	list, err := a.service.List(c.Request.Context(), recipes.Filter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSummaries(list))
}

func (a *APIModule) getRecipe(c *gin.Context) {
	id, err := recipes.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := a.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDetail(recipe))
}

func (a *APIModule) createRecipe(c *gin.Context) {
	input, uploads, err := parseRecipeRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := a.service.Create(c.Request.Context(), input, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDetail(recipe))
}

func (a *APIModule) updateRecipe(c *gin.Context) {
	id, err := recipes.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	input, uploads, err := parseRecipeRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := a.service.Update(c.Request.Context(), id, input, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDetail(recipe))
}

func (a *APIModule) deleteRecipe(c *gin.Context) {
	id, err := recipes.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := a.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *APIModule) listCategories(c *gin.Context) {
	categories, err := a.service.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategories(categories))
}

// parseRecipeRequest reads a multipart (or urlencoded) recipe form and its
// files.
func parseRecipeRequest(c *gin.Context) (recipes.RecipeInput, recipes.Uploads, error) {
	var uploads recipes.Uploads

	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return recipes.RecipeInput{}, uploads, &recipes.ValidationError{Reason: errMsgForm}
	}

	input, err := recipes.ParseForm(c.Request.PostForm)
	if err != nil {
		return recipes.RecipeInput{}, uploads, err
	}

	if form != nil {
		uploads, err = collectUploads(form.File)
		if err != nil {
			return recipes.RecipeInput{}, uploads, err
		}
	}
	return input, uploads, nil
}

func collectUploads(files map[string][]*multipart.FileHeader) (recipes.Uploads, error) {
	uploads := recipes.Uploads{StepImages: map[int][]media.Upload{}}

	for field, headers := range files {
		if len(headers) == 0 {
			continue
		}

		if field == recipeImageField {
			up := media.FromFileHeader(headers[0])
			uploads.RecipeImage = &up
			continue
		}

		raw, ok := strings.CutPrefix(field, stepImagePrefix)
		if !ok {
			continue
		}
		step, err := strconv.Atoi(raw)
		if err != nil || step < 1 {
			return uploads, &recipes.ValidationError{Reason: field + " is not a valid step field"}
		}
		for _, fh := range headers {
			uploads.StepImages[step] = append(uploads.StepImages[step], media.FromFileHeader(fh))
		}
	}
	return uploads, nil
}

func respondError(c *gin.Context, err error) {
	var ve *recipes.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
	case errors.Is(err, recipes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errMsgNotFound})
	default:
		log.Printf("api: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errMsgInternal})
	}
}
