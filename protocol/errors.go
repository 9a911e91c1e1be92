package protocol

import "errors"

var (
	ErrPartialPrefix = errors.New("protocol: stream ended inside length prefix")
	ErrShortPayload  = errors.New("protocol: stream ended inside payload")
	ErrFrameTooLarge = errors.New("protocol: frame too large")
	ErrWriteFailed   = errors.New("protocol: write failed")
)
