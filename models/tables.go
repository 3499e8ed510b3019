package models

import "time"

// Recipe owns its ingredients and instructions; categories are shared and
// linked through recipe_categories. ImageURL is web-relative and empty when no
// image was uploaded.
type Recipe struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `json:"image_url"`
	PrepTime    int       `gorm:"not null" json:"prep_time"` // minutes
	CookTime    int       `gorm:"not null" json:"cook_time"` // minutes
	Servings    int       `gorm:"not null" json:"servings"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Ingredients  []Ingredient  `gorm:"foreignKey:RecipeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"ingredients"`
	Instructions []Instruction `gorm:"foreignKey:RecipeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"instructions"`
	Categories   []Category    `gorm:"many2many:recipe_categories;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"categories"`
}

type Ingredient struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipeID  uint      `gorm:"not null;index" json:"recipe_id"`
	Name      string    `gorm:"not null" json:"name"`
	Quantity  float64   `gorm:"type:decimal(10,2);not null" json:"quantity"`
	Unit      string    `gorm:"not null" json:"unit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instruction is one step. StepNumber is always the 1-based position of the
// step in the list it was written with.
type Instruction struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipeID    uint      `gorm:"not null;index" json:"recipe_id"`
	StepNumber  int       `gorm:"not null" json:"step_number"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Images []InstructionImage `gorm:"foreignKey:InstructionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"images"`
}

type InstructionImage struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	InstructionID uint      `gorm:"not null;index" json:"instruction_id"`
	Filename      string    `gorm:"not null" json:"filename"`
	OriginalName  string    `gorm:"not null" json:"original_name"`
	MIMEType      string    `gorm:"column:mimetype;not null" json:"mimetype"`
	Path          string    `gorm:"not null" json:"path"`
	Size          int64     `gorm:"not null" json:"size"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipeCategory is the join row behind Recipe.Categories.
type RecipeCategory struct {
	RecipeID   uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
	CreatedAt  time.Time
}

// Tables lists every table in migration order.
func Tables() []interface{} {
	return []interface{}{
		&Category{},
		&Recipe{},
		&Ingredient{},
		&Instruction{},
		&InstructionImage{},
		&RecipeCategory{},
	}
}
