// services/validation.go
package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks a request's struct tags before any work is dispatched
func validateRequest(name string, req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid %s request: %w", name, err)
	}
	return nil
}
