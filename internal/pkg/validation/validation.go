package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	phonePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	aadharPattern = regexp.MustCompile(`^[0-9]{12}$`)
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator. Field errors are reported under
// their json names and decimal amounts compare as numbers.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})

		_ = v.RegisterValidation("phone", matches(phonePattern))
		_ = v.RegisterValidation("aadhar", matches(aadharPattern))
		_ = v.RegisterValidation("pan", matches(panPattern))
		_ = v.RegisterValidation("paymenttype", func(fl validator.FieldLevel) bool {
			return consts.PaymentType(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns a *apperrors.ValidationError naming every
// failing field.
func Struct(s interface{}) error {
	return ToValidationError(Validator().Struct(s))
}

// ToValidationError converts validator errors; other errors pass through.
func ToValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), message(fe))
	}
	return verr
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		if fe.Kind() == reflect.String && fe.Param() == "1" {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must contain at most " + fe.Param() + " item(s)"
		}
		return "must be at most " + fe.Param()
	case "numeric":
		return "must be numeric"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "phone":
		return "must be a 10-digit phone number"
	case "aadhar":
		return "must be a 12-digit Aadhar number"
	case "pan":
		return "must be a valid PAN (e.g. ABCDE1234F)"
	case "paymenttype":
		return "must be one of: deposit, monthlySaving, loanAmount, interest, installment"
	default:
		return "is invalid"
	}
}
