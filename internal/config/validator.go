package config

import (
	"fmt"

	"github.com/gookit/validate"
)

// Validator checks a loaded configuration against its declared rules.
type Validator struct {
	conf *Config
}

// NewValidator returns a Validator for the given configuration.
func NewValidator(conf *Config) *Validator {
	return &Validator{conf: conf}
}

// Validate returns an error describing the first failing rule, or nil when
// the configuration is usable.
func (v *Validator) Validate() error {
	res := validate.Struct(v.conf)
	if res.Validate() {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", res.Errors.One())
}
