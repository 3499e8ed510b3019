package media

import (
	"errors"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes serves stored files under /uploads/ from the store.
func RegisterRoutes(router *gin.Engine, store Store) {
	router.GET(URLPrefix+"*filepath", ServeHandler(store))
}

func ServeHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := URLPrefix + trimSlash(c.Param("filepath"))

		rc, err := store.Open(c.Request.Context(), p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrInvalidPath) {
				c.Status(http.StatusNotFound)
				return
			}
			log.Printf("media: serving %s: %v", p, err)
			c.Status(http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Cache-Control", "public, max-age=86400")
		c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
