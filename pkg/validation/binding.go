package validation

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ConfigureGinBinding switches gin's request validator to json field names.
// Call once at startup, before serving requests.
func ConfigureGinBinding() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		UseJSONFieldNames(v)
	}
}
