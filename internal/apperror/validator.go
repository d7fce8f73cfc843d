package apperror

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"zakat-tracker/internal/models"
)

// CategoryValidator accepts only the known entry categories.
var CategoryValidator = func(fl validator.FieldLevel) bool {
	return models.Category(fl.Field().String()).Valid()
}

// NewValidator returns a validator reporting fields by their json or form tag
// name, with the "category" tag registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("category", CategoryValidator)
	return v
}
