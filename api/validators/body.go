package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/mksagencies/storefront-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeJSONBody decodes a required JSON body and runs struct validation.
// Unknown fields are ignored; the storefront sends whole product objects.
func DecodeJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, false)
}

// DecodeOptionalJSONBody is DecodeJSONBody but treats an empty body as {}.
func DecodeOptionalJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, true)
}

func decode(r *http.Request, dest any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid request body")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	if !isStruct(dest) {
		return nil
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		first := ""
		for _, fieldErr := range errs {
			msg := validationMessage(fieldErr)
			details[fieldErr.Field()] = msg
			if first == "" {
				first = fieldErr.Field() + " " + msg
			}
		}
		return pkgerrors.New(pkgerrors.CodeValidation, first).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}
