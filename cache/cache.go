package cache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PageCache stores rendered recipe detail pages on disk.
type PageCache struct {
	root   string
	maxAge time.Duration
}

// NewPageCache returns a cache rooted at dir. Entries older than maxAge are
// treated as missing.
func NewPageCache(dir string, maxAge time.Duration) *PageCache {
	return &PageCache{root: dir, maxAge: maxAge}
}

// Path returns the cache file path for a recipe page
func (c *PageCache) Path(recipeID uint) string {
	key := strconv.FormatUint(uint64(recipeID), 10)
	hash := generateHash("recipe/" + key)
	return filepath.Join(c.root, "recipes", key+"_"+hash+".html")
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Write stores the rendered HTML of a recipe page
func (c *PageCache) Write(recipeID uint, html []byte) error {
	path := c.Path(recipeID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, html, 0644)
}

// Read returns the cached HTML if it exists and is not expired
func (c *PageCache) Read(recipeID uint) ([]byte, bool) {
	path := c.Path(recipeID)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Clear removes the cached page of one recipe
func (c *PageCache) Clear(recipeID uint) error {
	err := os.Remove(c.Path(recipeID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// InvalidateRecipe drops the cached page after the recipe changed.
func (c *PageCache) InvalidateRecipe(recipeID uint) {
	if err := c.Clear(recipeID); err != nil {
		log.Printf("cache: clearing recipe %d: %v", recipeID, err)
	}
}

// ClearAll removes every cached page
func (c *PageCache) ClearAll() error {
	return os.RemoveAll(filepath.Join(c.root, "recipes"))
}

// Prune runs at boot. With caching disabled (maxAge <= 0) every page goes,
// otherwise only the expired ones.
func (c *PageCache) Prune() error {
	if c.maxAge <= 0 {
		return c.ClearAll()
	}
	return c.ClearOld()
}

// ClearOld removes cached pages older than maxAge
func (c *PageCache) ClearOld() error {
	dir := filepath.Join(c.root, "recipes")

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > c.maxAge {
			os.Remove(path)
		}
		return nil
	})
}
