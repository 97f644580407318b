package common

import "fmt"

var (
	ErrLockPoisoned       = fmt.Errorf("lock poisoned")
	ErrLockOrder          = fmt.Errorf("lock acquired out of order")
	ErrNoProfile          = fmt.Errorf("no profile selected")
	ErrInvalidProfile     = fmt.Errorf("content is not a valid profile")
	ErrProcessNotRunning  = fmt.Errorf("proxy engine is not running")
	ErrIndexOutOfRange    = fmt.Errorf("subscription index out of range")
	ErrUnknownMethod      = fmt.Errorf("unknown method")
	ErrUnexpectedResponse = fmt.Errorf("unexpected response")
)
