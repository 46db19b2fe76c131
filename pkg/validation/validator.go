package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-book-tracker/internal/domain/entity"
)

// Init configures the global validator used by Gin's binding.
// - Uses form tag names in errors, falling back to JSON tag names.
// - Registers the bookstatus validator and alias tags.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
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
	_ = v.RegisterValidation("bookstatus", func(fl validator.FieldLevel) bool {
		_, ok := entity.ParseStatus(fl.Field().String())
		return ok
	})
	for tag, n := range lengthAliases {
		v.RegisterAlias(tag, "min=1,max="+strconv.Itoa(n))
	}
}

// lengthAliases are the bounded text fields of the forms, keyed by tag.
var lengthAliases = map[string]int{
	"username": 20,
	"title":    150,
	"author":   100,
	"genre":    50,
	"password": 72,
}

// ToDetails flattens binding errors into field -> message for the error envelope.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	if n, ok := lengthAliases[tag]; ok {
		return fmt.Sprintf("must be between 1 and %d characters long", n)
	}

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "eqfield":
		return "must be equal to " + param + " field"
	case "bookstatus":
		names := make([]string, 0, len(entity.Statuses))
		for _, s := range entity.Statuses {
			names = append(names, string(s))
		}
		return "must be one of: " + strings.Join(names, ", ")
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
