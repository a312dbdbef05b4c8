package graph

import "errors"

// ErrUnknownMode is returned when Export is called with an unsupported mode.
var ErrUnknownMode = errors.New("unknown export mode")
