package workspace

import "errors"

// ErrLocked indicates a mutating action was attempted after the session locked.
var ErrLocked = errors.New("session locked: sign in again")

// MsgConnectivity is shown for every transport failure.
const MsgConnectivity = "Could not reach the server. Check your connection and try again."
