package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("log_level", validateLogLevel)
	v.RegisterValidation("abs_path", validateAbsPath)

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				return ValidationError{
					Field:   e.Field(),
					Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
					Value:   e.Value(),
				}
			}
		}
		return err
	}

	for name := range config.Agents {
		if !knownAgent(name) {
			return ValidationError{
				Field:   "agents",
				Message: "unknown agent",
				Value:   name,
			}
		}
	}

	return nil
}

func knownAgent(name string) bool {
	switch name {
	case "claudecode", "codex", "cursor":
		return true
	}
	return false
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func validateAbsPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true
	}
	return filepath.IsAbs(path)
}
