package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against its struct tags and the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			messages := make([]string, 0, len(errs))
			for _, fieldErr := range errs {
				messages = append(messages, describeFieldError(fieldErr))
			}
			return fmt.Errorf("%s", strings.Join(messages, "; "))
		}
		return err
	}

	if cfg.API.JWTSecret != "" && len(cfg.API.JWTSecret) < 32 {
		return fmt.Errorf("api.jwt_secret must be at least 32 characters")
	}

	return nil
}

// describeFieldError renders one validation failure with the config-file
// field path instead of the Go struct path.
func describeFieldError(fieldErr validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fieldErr.Namespace(), "Config."))
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldErr.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fieldErr.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fieldErr.Tag())
	}
}
