package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	frontdeskvalidator "github.com/jwalitptl/frontdesk-api/pkg/validator"
)

// RegisterValidators installs the custom binding tags on gin's validator.
// It must run before the first request is bound.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}
	return frontdeskvalidator.Register(v)
}
