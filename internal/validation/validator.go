// Package validation wraps go-playground/validator with domain error
// conversion and the form-boundary checks the capture flows run before any
// store method is invoked.
package validation

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

// User-facing form messages. The product ships in Portuguese.
const (
	MsgTitleRequired      = "O título é obrigatório"
	MsgURLInvalid         = "A URL informada não é válida"
	MsgNameRequired       = "O nome é obrigatório"
	MsgObservationTooLong = "A observação deve ter no máximo 500 caracteres"
)

// Validator wraps go-playground/validator for struct validation.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return errors.Validation("validation failed").WithDetails(fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "é obrigatório"
	case "email":
		return "deve ser um e-mail válido"
	case "min":
		return fmt.Sprintf("deve ter pelo menos %s caracteres", e.Param())
	case "max":
		return fmt.Sprintf("deve ter no máximo %s caracteres", e.Param())
	case "url":
		return "deve ser uma URL válida"
	case "oneof":
		return fmt.Sprintf("deve ser um de: %s", e.Param())
	default:
		return fmt.Sprintf("falhou na validação %s", e.Tag())
	}
}

// ItemForm is what the capture form runs before anything reaches the store.
// Invalid input never reaches addItem.
func ItemForm(title, rawURL string, typ domain.ItemType, observation string) error {
	if strings.TrimSpace(title) == "" {
		return errors.Validation(MsgTitleRequired)
	}
	if typ == domain.TypeLink && rawURL != "" {
		parsed, err := url.Parse(rawURL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return errors.Validation(MsgURLInvalid)
		}
	}
	if len([]rune(observation)) > domain.MaxObservationLength {
		return errors.Validation(MsgObservationTooLong)
	}
	return nil
}

// CollectionName rejects empty or whitespace-only collection names.
func CollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.Validation(MsgNameRequired)
	}
	return nil
}
