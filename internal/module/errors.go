package module

import "errors"

// ErrFlatten is returned when a module's settings cannot be flattened.
var ErrFlatten = errors.New("module: cannot flatten settings")
