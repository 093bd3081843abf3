package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Meme is a stored image together with the captions generated for it.
// ImageURL is a path relative to the configured base URL and never changes after creation.
type Meme struct {
	ID        string      `gorm:"type:text;primaryKey" json:"id"`
	ImageURL  string      `gorm:"type:text;not null" json:"imageUrl"`
	Captions  StringArray `gorm:"type:text;not null" json:"captions"`
	CreatedAt time.Time   `gorm:"index:idx_memes_created_at" json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TableName returns the database table name for Meme.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Meme) TableName() string {
	return "memes"
}

// Validate checks the record invariants that must hold before it is persisted.
// Parameters: none.
// Returns:
//   - error: wraps ErrValidation when the image reference or captions are missing.
func (m *Meme) Validate() error {
	if strings.TrimSpace(m.ImageURL) == "" {
		return NewValidationError("image url is required")
	}
	if len(m.Captions) == 0 {
		return NewValidationError("at least one caption is required")
	}
	return nil
}

// FullImageURL joins baseURL and the stored relative image path.
func (m *Meme) FullImageURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + m.ImageURL
}

// MemeView is a record as returned to API clients, with the derived full image URL.
type MemeView struct {
	Meme
	FullImageURL string `json:"fullImageUrl"`
}

// NewMemeView builds the client representation of m.
func NewMemeView(m *Meme, baseURL string) MemeView {
	return MemeView{Meme: *m, FullImageURL: m.FullImageURL(baseURL)}
}

// MemePage is one page of records in descending creation order.
type MemePage struct {
	Memes []Meme
	Total int64
	Page  int
	Limit int
}

// Pages returns the number of pages needed to hold Total records.
func (p *MemePage) Pages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}
