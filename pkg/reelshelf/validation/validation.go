// Package validation registers the domain tags request structs use in
// their binding rules: orientation, access and report_type.
package validation

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/models"
)

var once sync.Once

// Register installs the custom validators on gin's default validator.
// Calling it more than once is harmless.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		RegisterOn(v)
	})
}

// RegisterOn installs the custom validators on v
func RegisterOn(v *validator.Validate) {
	v.RegisterValidation("orientation", func(fl validator.FieldLevel) bool {
		return models.Orientation(fl.Field().String()).Valid()
	})
	v.RegisterValidation("access", func(fl validator.FieldLevel) bool {
		return models.Access(fl.Field().String()).Valid()
	})
	v.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.ReportType(fl.Field().String()).Valid()
	})
}
