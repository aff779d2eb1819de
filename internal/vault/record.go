package vault

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// Category groups records for display and filtering.
type Category string

const (
	CategorySocial   Category = "social"
	CategoryBanking  Category = "banking"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryEmail    Category = "email"
	CategoryShopping Category = "shopping"
	CategoryGaming   Category = "gaming"
	CategoryOther    Category = "other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategorySocial, CategoryBanking, CategoryWork, CategoryPersonal,
	CategoryEmail, CategoryShopping, CategoryGaming, CategoryOther,
}

// ParseCategory accepts a category name in any case. Empty input maps to other.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", pmerr.Wrap(pmerr.KindInvalidInput, "parse category", fmt.Errorf("unknown category %q", s))
	}
	return c, nil
}

// Record is one stored credential.
type Record struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Category     Category   `json:"category"`
	URL          string     `json:"url,omitempty"`
	Username     string     `json:"username,omitempty"`
	Password     string     `json:"password"`
	Notes        string     `json:"notes,omitempty"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
}

// RecordInput carries the caller-editable fields of a record.
type RecordInput struct {
	Name     string
	Category Category
	URL      string
	Username string
	Password string
	Notes    string
	Tags     []string
}

// Validate checks the required fields.
func (in RecordInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return pmerr.Wrap(pmerr.KindInvalidInput, "validate record", fmt.Errorf("name is required"))
	}
	if in.Password == "" {
		return pmerr.Wrap(pmerr.KindInvalidInput, "validate record", fmt.Errorf("password is required"))
	}
	if in.Category != "" && !slices.Contains(Categories, in.Category) {
		return pmerr.Wrap(pmerr.KindInvalidInput, "validate record", fmt.Errorf("unknown category %q", in.Category))
	}
	return nil
}

func (r *Record) apply(in RecordInput) {
	r.Name = strings.TrimSpace(in.Name)
	r.Category = in.Category
	if r.Category == "" {
		r.Category = CategoryOther
	}
	r.URL = strings.TrimSpace(in.URL)
	r.Username = strings.TrimSpace(in.Username)
	r.Password = in.Password
	r.Notes = in.Notes
	r.Tags = normalizeTags(in.Tags)
}

// HasTag reports whether the record carries tag, ignoring case.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
