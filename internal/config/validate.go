// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tamzrod/modbus-driver/internal/registry"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// FIELD RULES (struct tags)
	// ------------------------------------------------------------

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s: failed %q rule", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}

	// ------------------------------------------------------------
	// VARIABLE MAP VALIDATION
	// ------------------------------------------------------------

	// key = variable name (case-sensitive)
	owner := make(map[string]int)

	for i, v := range cfg.Variables {
		if prev, exists := owner[v.Name]; exists {
			return fmt.Errorf(
				"variable %q: duplicate name (entries %d and %d)",
				v.Name,
				prev,
				i,
			)
		}
		owner[v.Name] = i

		if _, err := registry.ParseValueType(v.Type); err != nil {
			return fmt.Errorf("variable %q: %w", v.Name, err)
		}
	}

	// Address aliasing (two names on one coil or register) is allowed.

	return nil
}
