package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/robert-malhotra/floodsync-api/internal/analysis"
	"github.com/robert-malhotra/floodsync-api/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared request validator. Besides the built-in tags
// it understands "eedate", a date in any form accepted by analysis.ParseDate.
// Field names in errors are the JSON names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		if err := validate.RegisterValidation("eedate", func(fl validator.FieldLevel) bool {
			_, err := analysis.ParseDate(fl.Field().String())
			return err == nil
		}); err != nil {
			panic(fmt.Sprintf("register eedate validator: %v", err))
		}
	})

	return validate
}

// validateRequest checks the request body and reports the first failing
// field as a *model.ValidationError.
func validateRequest(req *model.FloodMapRequest) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError("body", "%s", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "country_name":
		return model.NewValidationError(fe.Field(), "Country name is required")
	case "layer_type":
		return model.NewValidationError(fe.Field(), "Invalid layer_type. Use 'current', 'historical', or 'risk'")
	case "start_date", "end_date":
		return model.NewValidationError(fe.Field(), "Invalid %s %q: expected YYYY-MM-DD", fe.Field(), fe.Value())
	default:
		return model.NewValidationError(fe.Field(), "%s failed on the %q rule", fe.Field(), fe.Tag())
	}
}
