package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	notBlankTag = "notblank"
	clockTag    = "clock"
	dateTag     = "date"

	maxJSONBody = 1 << 20
)

// Validator checks request DTOs and renders errors in English.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	v := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Field errors use JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = v.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 5 && s[2] == ':' && s[0] >= '0' && s[0] <= '2'
	})
	_ = v.RegisterValidation(dateTag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 10 && s[4] == '-' && s[7] == '-'
	})

	messages := map[string]string{
		notBlankTag: "{0} cannot be blank",
		clockTag:    "{0} must be HH:MM",
		dateTag:     "{0} must be YYYY-MM-DD",
	}
	for tag, msg := range messages {
		tag, msg := tag, msg
		_ = v.RegisterTranslation(tag, trans,
			func(t ut.Translator) error { return t.Add(tag, msg, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				out, _ := t.T(tag, fe.Field())
				return out
			})
	}
	return &Validator{validate: v, translator: trans}
}

// ValidationError carries translated per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return &ValidationError{Fields: fields}
}

// decode reads a JSON body into dst and validates it.
func (v *Validator) decode(r *http.Request, dst interface{}) error {
	return v.decodeBody(r, dst, false)
}

// decodeOptional is decode for endpoints where the body may be omitted.
func (v *Validator) decodeOptional(r *http.Request, dst interface{}) error {
	return v.decodeBody(r, dst, true)
}

func (v *Validator) decodeBody(r *http.Request, dst interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return v.Struct(dst)
		}
		return errBadRequest("request body is empty")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return v.Struct(dst)
			}
			return errBadRequest("request body is empty")
		}
		return errBadRequest("invalid JSON body: " + err.Error())
	}
	return v.Struct(dst)
}
