package bootstrap

import (
	"github.com/kbukum/bulkflow/config"
)

// Config is the constraint for application config types. Structs that
// embed config.ServiceConfig satisfy it through promoted methods; they
// usually override ApplyDefaults and Validate and call the embedded
// versions first.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
