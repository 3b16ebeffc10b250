// Package validate checks tagged structs and reports the first failure in
// english, naming fields by their json tag.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once  sync.Once
	v     *validator.Validate
	trans ut.Translator
)

func initValidator() {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ = uni.GetTranslator("en")

	v = validator.New(validator.WithRequiredStructEnabled())

	// prefer json tag names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// short messages for bounds
	registerShort(v, "min", "{0} must be at least {1}")
	registerShort(v, "gte", "{0} must be at least {1}")
	registerShort(v, "max", "{0} must be at most {1}")

	// "10ms", "1s": a parseable, positive duration string
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	_ = v.RegisterTranslation("duration", trans,
		func(ut ut.Translator) error {
			return ut.Add("duration", "{0} must be a positive duration like 10ms, got '{1}'", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("duration", fe.Field(), fe.Value().(string))
			return msg
		},
	)
}

func registerShort(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// Get returns the shared validator, building it on first use.
func Get() *validator.Validate {
	once.Do(initValidator)
	return v
}

// Struct validates s and returns the first failure as a readable error.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(verrs[0].Translate(trans))
	}
	return err
}
