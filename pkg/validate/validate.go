// Package validate checks boundary representations against the constraint
// schema declared on their struct tags and reports field-level violations.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	handlePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	fullnamePattern = regexp.MustCompile(`^[A-Za-z0-9\s-]+$`)
)

// FieldError is a single constraint violation on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks objects against their declared constraints. Field
// names in violations follow the json tag, matching what callers sent.
type Validator struct {
	v *validator.Validate
}

// New builds a validator with the domain constraint tags registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "fullname", func(fl validator.FieldLevel) bool {
		return fullnamePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

// Check validates obj and returns every violation found, or nil when the
// object satisfies its declared constraints. Violations are collected, not
// short-circuited, so one pass reports all broken fields.
func (c *Validator) Check(obj any) []FieldError {
	err := c.v.Struct(obj)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// fieldPath reduces the violation namespace to the path the caller sent,
// keeping nested segments like "jitter.username". Segments that kept
// their Go name (the root type and embedded structs) have no json mapping
// and are dropped; only the leaf survives unconditionally.
func fieldPath(fe validator.FieldError) string {
	named := strings.Split(fe.Namespace(), ".")
	structural := strings.Split(fe.StructNamespace(), ".")
	out := make([]string, 0, len(named))
	for i, seg := range named {
		if i < len(named)-1 && i < len(structural) && seg == structural[i] {
			continue
		}
		out = append(out, seg)
	}
	return strings.Join(out, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "handle":
		return "may contain only letters, digits, underscore or hyphen"
	case "fullname":
		return "may contain only letters, digits, spaces or hyphen"
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
