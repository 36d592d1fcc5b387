package link

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRecords         = errors.New("no records to send")
	ErrConnectionTimeout    = errors.New("failed to connect: connection timeout")
	ErrTransmissionTimeout  = errors.New("transmission timeout")
	ErrLastFrameResendLimit = errors.New("last frame resend limit reached")
	ErrChannelClosed        = errors.New("channel closed")
	ErrPayloadTooLarge      = fmt.Errorf("payload is larger than link layer MTU (%d)", MTU)
)
