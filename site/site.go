package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"recipebook/models"
	"recipebook/recipes"
)

type SiteModule struct {
	service recipes.Service
}

// markdown renderer for recipe and step descriptions. Raw HTML is escaped.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

func NewSiteModule(service recipes.Service) *SiteModule {
	return &SiteModule{service: service}
}

// FuncMap holds the template helpers used by site/views.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"now": func() time.Time {
			return time.Now()
		},
		"duration": formatMinutes,
	}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/recipe/new", s.newRecipe)
	router.GET("/recipe/:id/edit", s.editRecipe)
	router.GET("/recipe/:id", s.recipe)
	router.POST("/recipe/:id/delete", s.deleteRecipe)
}

type stepView struct {
	Number      int
	Description template.HTML
	Images      []models.InstructionImage
}

func (s *SiteModule) index(c *gin.Context) {
	filter := recipes.Filter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}

	list, err := s.service.List(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}

	categories, err := s.service.Categories(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "site_index.html", gin.H{
		"recipes":    list,
		"categories": categories,
		"search":     filter.Search,
		"category":   filter.Category,
		"flash":      popFlash(c),
	})
}

func (s *SiteModule) newRecipe(c *gin.Context) {
	categories, err := s.service.Categories(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.HTML(http.StatusOK, "site_recipe_form.html", gin.H{
		"title":      "New recipe",
		"action":     "/api/recipes",
		"method":     "POST",
		"recipe":     models.Recipe{Servings: 1},
		"categories": categories,
		"selected":   map[uint]bool{},
	})
}

func (s *SiteModule) editRecipe(c *gin.Context) {
	recipe, ok := s.loadRecipe(c)
	if !ok {
		return
	}

	categories, err := s.service.Categories(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	selected := make(map[uint]bool, len(recipe.Categories))
	for _, cat := range recipe.Categories {
		selected[cat.ID] = true
	}

	c.HTML(http.StatusOK, "site_recipe_form.html", gin.H{
		"title":      "Edit " + recipe.Title,
		"action":     fmt.Sprintf("/api/recipes/%d", recipe.ID),
		"method":     "PUT",
		"recipe":     recipe,
		"categories": categories,
		"selected":   selected,
	})
}

func (s *SiteModule) recipe(c *gin.Context) {
	recipe, ok := s.loadRecipe(c)
	if !ok {
		return
	}

	steps := make([]stepView, 0, len(recipe.Instructions))
	for _, step := range recipe.Instructions {
		steps = append(steps, stepView{
			Number:      step.StepNumber,
			Description: template.HTML(renderMarkdown(step.Description)),
			Images:      step.Images,
		})
	}

	c.HTML(http.StatusOK, "site_recipe.html", gin.H{
		"recipe":          recipe,
		"descriptionHTML": template.HTML(renderMarkdown(recipe.Description)),
		"steps":           steps,
		"totalTime":       recipe.PrepTime + recipe.CookTime,
	})
}

func (s *SiteModule) deleteRecipe(c *gin.Context) {
	id, err := recipes.ParseID(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	recipe, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if err := s.service.Delete(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}

	session := sessions.Default(c)
	session.AddFlash(fmt.Sprintf("Recipe %q was deleted", recipe.Title))
	if err := session.Save(); err != nil {
		log.Printf("site: saving session: %v", err)
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *SiteModule) loadRecipe(c *gin.Context) (*models.Recipe, bool) {
	id, err := recipes.ParseID(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return nil, false
	}

	recipe, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return nil, false
	}
	return recipe, true
}

func (s *SiteModule) renderError(c *gin.Context, err error) {
	if errors.Is(err, recipes.ErrNotFound) {
		c.HTML(http.StatusNotFound, "site_error.html", gin.H{
			"error": "Recipe not found",
		})
		return
	}

	log.Printf("site: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.HTML(http.StatusInternalServerError, "site_error.html", gin.H{
		"error": "Something went wrong while loading recipes",
	})
}

func popFlash(c *gin.Context) string {
	session := sessions.Default(c)
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := session.Save(); err != nil {
		log.Printf("site: saving session: %v", err)
	}
	msg, _ := flashes[0].(string)
	return msg
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTMLEscapeString(content)
	}
	return buf.String()
}

// formatMinutes renders 95 as "1 h 35 min".
func formatMinutes(minutes int) string {
	switch {
	case minutes <= 0:
		return "0 min"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	case minutes%60 == 0:
		return fmt.Sprintf("%d h", minutes/60)
	default:
		return fmt.Sprintf("%d h %d min", minutes/60, minutes%60)
	}
}
