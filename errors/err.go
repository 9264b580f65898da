package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig  = fmt.Errorf("tracelit: invalid config")
	ErrNotFound       = fmt.Errorf("tracelit: not found")
	ErrConflict       = fmt.Errorf("tracelit: conflict")
	ErrInvalidParams  = fmt.Errorf("tracelit: invalid params")
	ErrInternal       = fmt.Errorf("tracelit: internal error")
	ErrInvalidRequest = fmt.Errorf("tracelit: invalid request")
)
