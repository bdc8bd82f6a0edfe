// Package validation checks configuration structs against their
// `validate` struct tags.
//
// Field paths in errors use the mapstructure keys, so a failure names the
// setting the operator has to change:
//
//	type Config struct {
//	    Discovery discovery.Config `mapstructure:"discovery"`
//	}
//	err := validation.Validate(cfg) // INVALID_INPUT: discovery.interval: must be greater than 0
package validation
