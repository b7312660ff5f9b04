package validator

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"emergencyDashboard/pkg/e"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	RegisterCustomValidations(validate)
}

// ValidateStruct runs the struct tags and reports violations as a single
// validation failure, one "field: message" pair per violated field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return e.Invalid("%s", err.Error())
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "failed on " + fe.Tag()
		}
		parts = append(parts, lowerFirst(fe.Field())+": "+msg)
	}
	sort.Strings(parts)
	return e.Invalid("%s", strings.Join(parts, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
