package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrUnknownTool     = errors.New("tool is not in the domain allow-list")
	ErrValidation      = errors.New("validation failed")
)
