package physical

import (
	"errors"
	"fmt"
)

var (
	ErrCannotSendEmpty = errors.New("cannot send empty payload")
	ErrPayloadTooLarge = fmt.Errorf("payload is larger than physical layer MTU (%d)", MTU)
	ErrWireClosed      = errors.New("wire closed")
)
