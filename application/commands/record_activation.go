package commands

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RecordActivationCommand folds one execution telemetry sample into the
// station graph. TargetID names a node or an edge; co-activated node
// pairs feed the synaptogenesis ledger.
type RecordActivationCommand struct {
	TargetID        string   `json:"target_id" validate:"required"`
	LatencyMs       int64    `json:"latency_ms" validate:"gte=0"`
	Success         bool     `json:"success"`
	CoActivatedWith []string `json:"co_activated_with,omitempty" validate:"dive,required"`
}

// Validate implements the Command interface
func (c RecordActivationCommand) Validate() error {
	return validate.Struct(c)
}
