package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	apperrors "github.com/auth247/pin-server-go/internal/errors"
)

type userRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
}

type validateRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Code   string `json:"code" validate:"required,max=32"`
}

// RequestValidator decodes JSON bodies and checks their validate tags.
// Field errors are keyed by JSON name.
type RequestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewRequestValidator() (*RequestValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	trans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, errors.New("english translator not found")
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &RequestValidator{validate: validate, translator: trans}, nil
}

// Decode reads r's body into dst and validates it. Failures are returned as
// ValidationError AppErrors.
func (v *RequestValidator) Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ValidationError("Invalid request body")
	}

	if err := v.validate.Struct(dst); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return apperrors.ValidationError("Invalid request body")
		}

		fields := make(map[string]string, len(validateErrs))
		for _, fe := range validateErrs {
			fields[fe.Field()] = fe.Translate(v.translator)
		}
		return apperrors.ValidationError("Request validation failed").WithDetails(fields)
	}
	return nil
}
