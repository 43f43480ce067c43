package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringList is a string slice stored as a JSON array
type StringList []string

// Value implements the driver.Valuer interface
func (a StringList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (a *StringList) Scan(value interface{}) error {
	if value == nil {
		*a = StringList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	return json.Unmarshal(bytes, a)
}

// Analysis is one completed photo analysis
type Analysis struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	ImageKey     string     `gorm:"size:255" json:"image_key,omitempty"`
	ContentType  string     `gorm:"size:100" json:"content_type"`
	ImageBytes   int64      `json:"image_bytes"`
	Ingredients  StringList `gorm:"type:text;not null" json:"ingredients"`
	RecipeTitles StringList `gorm:"type:text;not null" json:"recipe_titles"`
	DurationMS   int64      `json:"duration_ms"`
}

// BeforeCreate assigns an id so the row works the same on postgres and sqlite
func (a *Analysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
