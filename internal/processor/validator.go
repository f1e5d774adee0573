package processor

import (
	"errors"
	"fmt"

	"colnews/internal/models"
	"colnews/pkg/utils"
)

// ErrTooShort marks a document with too little title and body text to be worth keeping.
var ErrTooShort = errors.New("article has too little content")

// Validator decides whether a cleaned article is kept.
type Validator struct {
	minChars int
}

// NewValidator creates a validator requiring minChars characters of title plus text.
func NewValidator(minChars int) *Validator {
	return &Validator{minChars: minChars}
}

// Validate checks the combined length of the cleaned title and text.
func (v *Validator) Validate(a *models.CleanArticle) error {
	n := utils.RuneLen(a.Title) + utils.RuneLen(a.Text)
	if n < v.minChars {
		return fmt.Errorf("%w: %d < %d characters", ErrTooShort, n, v.minChars)
	}

	return nil
}
