package reading

import "errors"

// ErrUnknownField indicates a field identifier outside room, meter, and decimal.
var ErrUnknownField = errors.New("unknown field")
