package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator with the service's custom tags registered
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names so messages match request bodies.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("alert_status", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "active", "resolved", "blocked":
				return true
			}
			return false
		})
		_ = validate.RegisterValidation("scan_mode", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "", "initial", "incremental":
				return true
			}
			return false
		})
		_ = validate.RegisterValidation("user_id", func(fl validator.FieldLevel) bool {
			return IsValidUserID(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s and returns a *ValidationError for field failures
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// IsValidUserID accepts opaque ids that are non-blank and safe to embed in keys and paths
func IsValidUserID(id string) bool {
	if strings.TrimSpace(id) == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n/")
}
