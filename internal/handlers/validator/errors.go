package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ErrInvalidField struct {
	error
}

func NewErrInvalidField(format string, args ...any) *ErrInvalidField {
	return &ErrInvalidField{fmt.Errorf(format, args...)}
}

// describe turns validator errors into a message naming each failing field and rule.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must be %s %s characters", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is not a valid %s", fe.Field(), fe.Tag()))
		}
	}
	return NewErrInvalidField("%s", strings.Join(parts, "; "))
}
