// Package forms binds and cleans the HTML and JSON submissions of the
// catalog: renewal, author and book edits, lending and new copies.
//
// Binding goes through gin (form or JSON depending on the content type) and
// the validator behind its binding tags. Failures are collected per field
// into Errors so the page can be re-rendered with messages next to inputs.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// NonField collects errors that do not belong to a single input.
const NonField = "__all__"

const (
	MsgRequired      = "This field is required."
	MsgInvalidDate   = "Enter a valid date."
	MsgInvalidChoice = "Select a valid choice."
	MsgInvalidForm   = "Invalid submission."
)

// Errors maps a form field name to its messages.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Merge copies every message of other into e.
func (e Errors) Merge(other Errors) Errors {
	for field, messages := range other {
		e[field] = append(e[field], messages...)
	}
	return e
}

// Bind fills dst from the request and runs its binding rules.
func Bind(c *gin.Context, dst any) Errors {
	errs := Errors{}
	if err := c.ShouldBind(dst); err != nil {
		errs.Merge(FromBindError(dst, err))
	}
	return errs
}

// FromBindError translates a binding failure into field errors keyed by the
// form tag of the offending field.
func FromBindError(dst any, err error) Errors {
	errs := Errors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonField, MsgInvalidForm)
		return errs
	}
	t := reflect.TypeOf(dst)
	for _, fe := range verrs {
		errs.Add(fieldName(t, fe.StructField()), message(fe))
	}
	return errs
}

func fieldName(t reflect.Type, structField string) string {
	name := structField
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(name); ok {
			if tag, _, _ := strings.Cut(f.Tag.Get("form"), ","); tag != "" && tag != "-" {
				return tag
			}
		}
	}
	return strings.ToLower(name)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "datetime":
		return MsgInvalidDate
	case "numeric", "oneof":
		return MsgInvalidChoice
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
