package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	phoneDigits  = regexp.MustCompile(`^[0-9]{10,15}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return len([]rune(strings.TrimSpace(fl.Field().String()))) >= 2
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneDigits.MatchString(phoneNoise.Replace(fl.Field().String()))
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(model.TimeLayout, fl.Field().String())
		return err == nil
	})
	return v
}

var reasons = map[string]string{
	"required":   "is required",
	"useremail":  "must be a valid email address",
	"personname": "must be at least 2 characters",
	"phone":      "must contain 10 to 15 digits",
	"clock":      "must be a time of day as HH:MM",
	"gt":         "must be positive",
	"gte":        "must not be negative",
}

// check runs struct validation and folds the result into a ValidationError.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		reason, ok := reasons[fe.Tag()]
		switch {
		case fe.Tag() == "min":
			reason = "must be at least " + fe.Param() + " characters"
		case !ok:
			reason = "is invalid"
		}
		out.Fields[fe.Field()] = reason
	}
	return out
}
