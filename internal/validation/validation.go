// Package validation registers the domain's custom binding tags on gin's
// validator and turns binding failures into readable messages.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taskprogress/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of planned dates.
const DateLayout = "2006-01-02"

var categoryKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// CategoryKey reports whether s is a valid category name.
func CategoryKey(s string) bool {
	return categoryKeyPattern.MatchString(s)
}

var tags = map[string]validator.Func{
	"task_status": func(fl validator.FieldLevel) bool {
		_, err := model.ParseStatus(fl.Field().String())
		return err == nil
	},
	"user_role": func(fl validator.FieldLevel) bool {
		_, err := model.ParseRole(fl.Field().String())
		return err == nil
	},
	"category_color": func(fl validator.FieldLevel) bool {
		_, err := model.ParseColor(fl.Field().String())
		return err == nil
	},
	"category_key": func(fl validator.FieldLevel) bool {
		return CategoryKey(fl.Field().String())
	},
	"date_ymd": func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	},
}

// Register installs the custom tags on gin's default binding engine. It is
// safe to call more than once.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// Describe renders a binding error as one line listing every failing
// field. Errors that are not validator errors (malformed JSON, wrong
// types) get a generic message.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "task_status":
		return field + " must be one of pending, in-progress, completed"
	case "user_role":
		return field + " must be one of admin, data_entry, supervisor"
	case "category_color":
		return field + " must be a supported color"
	case "category_key":
		return field + " may only contain letters, digits and underscores"
	case "date_ymd":
		return field + " must be a date in YYYY-MM-DD format"
	case "eqfield":
		return field + " does not match"
	}
	return field + " is invalid"
}

// fieldName converts the struct field to snake case, which is what the
// request bodies and form fields use.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
