package cache

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware serves recipe detail pages from the cache and stores fresh
// renderings of them.
func (c *PageCache) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet || c.maxAge <= 0 {
			ctx.Next()
			return
		}

		recipeID, ok := recipeFromPath(ctx.Request.URL.Path)
		if !ok {
			ctx.Next()
			return
		}

		if cached, found := c.Read(recipeID); found {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "text/html; charset=utf-8", cached)
			ctx.Abort()
			return
		}

		ctx.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: ctx.Writer,
			body:           bytes.NewBuffer(nil),
		}
		ctx.Writer = writer

		ctx.Next()

		// Only cache successful HTML responses
		if ctx.Writer.Status() == http.StatusOK &&
			strings.HasPrefix(ctx.Writer.Header().Get("Content-Type"), "text/html") {
			if err := c.Write(recipeID, writer.body.Bytes()); err != nil {
				log.Printf("cache: writing recipe %d: %v", recipeID, err)
			}
		}
	}
}

// recipeFromPath matches /recipe/<id> only.
func recipeFromPath(path string) (uint, bool) {
	rest, ok := strings.CutPrefix(path, "/recipe/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
