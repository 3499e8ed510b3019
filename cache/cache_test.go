package cache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCache_ReadWrite(t *testing.T) {
	c := NewPageCache(t.TempDir(), time.Hour)

	_, found := c.Read(1)
	assert.False(t, found)

	require.NoError(t, c.Write(1, []byte("<h1>Phở</h1>")))
	html, found := c.Read(1)
	assert.True(t, found)
	assert.Equal(t, "<h1>Phở</h1>", string(html))

	_, found = c.Read(2)
	assert.False(t, found)

	c.InvalidateRecipe(1)
	_, found = c.Read(1)
	assert.False(t, found)

	require.NoError(t, c.Clear(1))
}

func TestPageCache_PathsAreDistinct(t *testing.T) {
	c := NewPageCache("cache", time.Hour)
	assert.NotEqual(t, c.Path(1), c.Path(11))
	assert.Contains(t, c.Path(42), "42_")
}

func TestPageCache_Expiry(t *testing.T) {
	c := NewPageCache(t.TempDir(), time.Minute)
	require.NoError(t, c.Write(3, []byte("old")))
	require.NoError(t, c.Write(4, []byte("new")))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.Path(3), past, past))

	_, found := c.Read(3)
	assert.False(t, found)

	require.NoError(t, c.ClearOld())
	_, err := os.Stat(c.Path(3))
	assert.True(t, os.IsNotExist(err))
	_, found = c.Read(4)
	assert.True(t, found)

	require.NoError(t, c.ClearAll())
	_, found = c.Read(4)
	assert.False(t, found)
	require.NoError(t, c.ClearOld())
}

func TestPageCache_Prune(t *testing.T) {
	dir := t.TempDir()

	c := NewPageCache(dir, time.Minute)
	require.NoError(t, c.Write(1, []byte("stale")))
	require.NoError(t, c.Write(2, []byte("fresh")))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.Path(1), past, past))

	require.NoError(t, c.Prune())
	_, err := os.Stat(c.Path(1))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.Path(2))
	assert.NoError(t, err)

	disabled := NewPageCache(dir, 0)
	require.NoError(t, disabled.Prune())
	_, err = os.Stat(c.Path(2))
	assert.True(t, os.IsNotExist(err))
}

func TestMiddleware_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewPageCache(t.TempDir(), 0)

	router := gin.New()
	router.Use(c.Middleware())
	router.GET("/recipe/:id", func(ctx *gin.Context) {
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte("recipe"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/recipe/5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	_, err := os.Stat(c.Path(5))
	assert.True(t, os.IsNotExist(err))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewPageCache(t.TempDir(), time.Hour)

	renders := 0
	router := gin.New()
	router.Use(c.Middleware())
	router.GET("/recipe/:id", func(ctx *gin.Context) {
		renders++
		if ctx.Param("id") == "404" {
			ctx.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte("missing"))
			return
		}
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte("recipe "+ctx.Param("id")))
	})
	router.GET("/recipe/:id/edit", func(ctx *gin.Context) {
		renders++
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte("form"))
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)
		return w
	}

	w := get("/recipe/7")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "recipe 7", w.Body.String())

	w = get("/recipe/7")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "recipe 7", w.Body.String())
	assert.Equal(t, 1, renders)

	c.InvalidateRecipe(7)
	w = get("/recipe/7")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, renders)

	get("/recipe/404")
	w = get("/recipe/404")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = get("/recipe/7/edit")
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestRecipeFromPath(t *testing.T) {
	tests := []struct {
		path string
		id   uint
		ok   bool
	}{
		{"/recipe/12", 12, true},
		{"/recipe/new", 0, false},
		{"/recipe/12/edit", 0, false},
		{"/recipe/", 0, false},
		{"/recipe/0", 0, false},
		{"/recipes/12", 0, false},
		{"/api/recipes/12", 0, false},
	}
	for _, tt := range tests {
		id, ok := recipeFromPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.id, id, tt.path)
	}
}
