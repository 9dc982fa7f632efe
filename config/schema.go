package config

import (
	"encoding/json"
	"sync"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/schema"
	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects the JSON Schema of the core configuration sections.
// Extension sections are not part of it.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		Anonymous:                 true,
	}

	s := r.Reflect(&Config{})
	s.Title = "recordsync configuration"
	s.Description = "Core sections of recordsync.yml."

	return json.MarshalIndent(s, "", "  ")
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// Validate checks the configuration against the reflected schema.
func (c *Config) Validate() error {
	validatorOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			validatorErr = err
			return
		}
		validator, validatorErr = schema.NewValidator("recordsync.schema.json", data)
	})
	if validatorErr != nil {
		return errors.Wrap(validatorErr, errors.ErrCodeInternal, "failed to build config validator")
	}

	if err := validator.Validate(c); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "configuration does not match schema").
			WithDetail("path", c.Path)
	}
	return nil
}
