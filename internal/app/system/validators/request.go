// internal/app/system/validators/request.go
package validators

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	monthRe   = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	dateKeyRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validators: register %s: %v", tag, err))
		}
	}
	must("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	must("role", func(fl validator.FieldLevel) bool {
		return models.IsValidRole(fl.Field().String())
	})
	must("month", func(fl validator.FieldLevel) bool {
		return monthRe.MatchString(fl.Field().String())
	})
	must("datekey", func(fl validator.FieldLevel) bool {
		return dateKeyRe.MatchString(fl.Field().String())
	})
	must("httpurl", func(fl validator.FieldLevel) bool {
		return IsHTTPURL(fl.Field().String())
	})
	must("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// FieldError describes one failed rule on one request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (fe FieldError) String() string {
	switch fe.Rule {
	case "required", "notblank":
		return fe.Field + " is required"
	case "email":
		return fe.Field + " must be a valid email address"
	case "oneof":
		return fe.Field + " must be one of: " + strings.ReplaceAll(fe.Param, " ", ", ")
	case "min", "gte":
		return fe.Field + " must be at least " + fe.Param
	case "max", "lte":
		return fe.Field + " must be at most " + fe.Param
	case "objectid":
		return fe.Field + " must be a valid id"
	case "role":
		return fe.Field + " must be a valid role"
	case "month":
		return fe.Field + " must be formatted YYYY-MM"
	case "datekey":
		return fe.Field + " must be formatted YYYY-MM-DD"
	case "httpurl":
		return fe.Field + " must be an absolute http(s) URL"
	}
	return fe.Field + " is invalid (" + fe.Rule + ")"
}

// Error is returned by Struct when one or more fields fail validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Details(), "; ")
}

// Details returns one human-readable message per failed field.
func (e *Error) Details() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.String())
	}
	return out
}

// Struct validates s against its `validate` tags. Field failures come back
// as *Error; anything else (a nil or non-struct value) is returned as is.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsEmail reports whether s is a bare email address.
func IsEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}
