// Package validator adds the front desk's request tags to
// go-playground/validator and turns its errors into INVALID_ARGUMENT errors.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

// Custom tags
const (
	TagWeekday           = "weekday"
	TagPaymentMethod     = "payment_method"
	TagAppointmentStatus = "appointment_status"
)

var customValidators = map[string]validator.Func{
	TagWeekday: func(fl validator.FieldLevel) bool {
		_, ok := model.ParseWeekday(fl.Field().String())
		return ok
	},
	TagPaymentMethod: func(fl validator.FieldLevel) bool {
		_, err := model.ParsePaymentMethod(fl.Field().String())
		return err == nil
	},
	TagAppointmentStatus: func(fl validator.FieldLevel) bool {
		return model.AppointmentStatus(fl.Field().String()).Valid()
	},
}

// New returns a standalone validator reading the same `binding` tags gin does.
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// Register installs the custom tags on v and reports fields by their JSON name.
func Register(v *validator.Validate) error {
	for tag, fn := range customValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}

// Translate converts binding failures into an INVALID_ARGUMENT AppError.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return apperrors.NewBadRequest(strings.Join(msgs, "; "), err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperrors.NewBadRequest("malformed JSON body", err)
	case errors.As(err, &typeErr):
		return apperrors.NewBadRequest(fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type), err)
	}
	return apperrors.NewBadRequest("invalid request", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datetime":
		return fe.Field() + " must be YYYY-MM-DD"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case TagWeekday:
		return fe.Field() + " must be a day name such as MONDAY"
	case TagPaymentMethod:
		return fe.Field() + " must be CASH, CARD or ONLINE"
	case TagAppointmentStatus:
		return fe.Field() + " must be PENDING, CONFIRMED, COMPLETED or CANCELLED"
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
