// Package codec converts between frame payloads and message values.
//
// The layout is fixed: requests are [opcode][operand], responses are [result].
package codec

import (
	"errors"
	"fmt"

	"portbridge/message"
)

var (
	ErrMalformedCommand  = errors.New("codec: request payload is not 2 bytes")
	ErrMalformedResponse = errors.New("codec: response payload is not 1 byte")
)

func EncodeCommand(c message.Command) []byte {
	return []byte{byte(c.Opcode), c.Operand}
}

// DecodeCommand requires exactly CommandSize bytes. Shorter or longer payloads
// mean the peer broke the contract and are reported as ErrMalformedCommand.
func DecodeCommand(payload []byte) (message.Command, error) {
	if len(payload) != message.CommandSize {
		return message.Command{}, fmt.Errorf("%w: got %d bytes", ErrMalformedCommand, len(payload))
	}
	return message.Command{Opcode: message.Opcode(payload[0]), Operand: payload[1]}, nil
}

func EncodeResponse(r message.Response) []byte {
	return []byte{r.Result}
}

func DecodeResponse(payload []byte) (message.Response, error) {
	if len(payload) != message.ResponseSize {
		return message.Response{}, fmt.Errorf("%w: got %d bytes", ErrMalformedResponse, len(payload))
	}
	return message.Response{Result: payload[0]}, nil
}
