package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Failures is the set of codes reported while binding a form.
type Failures map[string]bool

// FromBinding maps the error returned by gin's ShouldBind to notice codes.
// A failed "required" rule gives missing-field and a failed "email" rule
// gives invalid-email. A request that could not be decoded gives error.
func FromBinding(err error) Failures {
	out := Failures{}
	if err == nil {
		return out
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		out[CodeError] = true
		return out
	}
	for _, fe := range fields {
		switch fe.Tag() {
		case "required":
			out[CodeMissingField] = true
		case "email":
			out[CodeInvalidEmail] = true
		default:
			out[CodeError] = true
		}
	}
	return out
}
