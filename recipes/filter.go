package recipes

import (
	"strings"

	"gorm.io/gorm"
)

// Filter narrows the recipe list. Empty fields match everything; set fields
// are combined with AND.
type Filter struct {
	Search   string // substring of title or description, case-insensitive
	Category string // exact category name
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Scope applies the filter to a query on the recipes table.
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	if search := strings.TrimSpace(f.Search); search != "" {
		db = searchScope(db, search)
	}

	if category := strings.TrimSpace(f.Category); category != "" {
		db = db.Where(
			"recipes.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Table("recipe_categories").
				Select("recipe_categories.recipe_id").
				Joins("JOIN categories ON categories.id = recipe_categories.category_id").
				Where("categories.name = ?", category),
		)
	}

	return db
}

// searchScope matches the term against title and description. Postgres folds
// every letter with ILIKE. SQLite's LIKE and LOWER fold ASCII only, so the
// term is also tried in lower and upper case, and an exact substring always
// matches.
func searchScope(db *gorm.DB, term string) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		pattern := likePattern(term)
		return db.Where(
			`recipes.title ILIKE ? ESCAPE '\' OR recipes.description ILIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}

	var conds []string
	var args []interface{}
	seen := map[string]bool{}
	for _, variant := range []string{term, strings.ToLower(term), strings.ToUpper(term)} {
		if seen[variant] {
			continue
		}
		seen[variant] = true
		pattern := likePattern(variant)
		conds = append(conds, `recipes.title LIKE ? ESCAPE '\'`, `recipes.description LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
