package lib

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var goValidator = validator.New()

// ValidationErrors collects every failed field constraint of a struct.
type ValidationErrors struct {
	Errors []string `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}

	return strings.Join(ve.Errors, "; ")
}

// ValidateStruct validates a struct using its `validate` tags.
// When validation passes, it returns nil.
func ValidateStruct(s any) error {
	err := goValidator.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := ValidationErrors{Errors: make([]string, 0, len(ve))}
	for _, e := range ve {
		if e.Param() != "" {
			out.Errors = append(out.Errors, fmt.Sprintf("%s %s=%s", e.Namespace(), e.ActualTag(), e.Param()))
		} else {
			out.Errors = append(out.Errors, fmt.Sprintf("%s %s", e.Namespace(), e.ActualTag()))
		}
	}
	return out
}
