// Package validation checks configuration values before a run starts.
//
// Struct tags cover most rules, using the go-playground validator:
//
//	type Config struct {
//	    Endpoints []string `mapstructure:"endpoints" validate:"required,min=1,dive,hostname_port"`
//	    BatchSize int      `mapstructure:"batch_size" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
// The Validator type collects the rest:
//
//	v := validation.New()
//	v.NotEmpty("delimiter", cfg.Delimiter)
//	err := v.Validate()
//
// Both return an INVALID_INPUT AppError whose "fields" detail lists every
// failing field.
package validation
