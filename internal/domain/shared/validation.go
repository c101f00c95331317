package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs the `validate` tags on v and converts failures into
// a ValidationError that names each offending field and rule.
func ValidateStruct(domain, op string, v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return WrapError(domain, op, ErrValidation, "invalid input", err)
	}

	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	sort.Strings(problems)

	return NewDomainError(domain, op, ErrValidation, "invalid fields: "+strings.Join(problems, ", "))
}
