package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrDuplicateID is returned by Validate when two articles share an ID.
var ErrDuplicateID = errors.New("duplicate article id")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks every article's field constraints and that IDs are unique.
func Validate(articles []Article) error {
	v := Validator()
	seen := make(map[int]struct{}, len(articles))
	for i := range articles {
		if err := v.Struct(articles[i]); err != nil {
			return fmt.Errorf("article at index %d: %w", i, err)
		}
		if _, dup := seen[articles[i].ID]; dup {
			return fmt.Errorf("article at index %d: %w %d", i, ErrDuplicateID, articles[i].ID)
		}
		seen[articles[i].ID] = struct{}{}
	}
	return nil
}
