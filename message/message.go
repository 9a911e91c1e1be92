// Package message defines the command and response values carried inside
// portbridge frames.
//
// A request frame holds exactly two bytes, an opcode and an operand. A
// response frame holds exactly one byte, the handler's result.
package message

import "fmt"

const (
	CommandSize  = 2
	ResponseSize = 1
)

// Opcode selects which handler processes a request.
type Opcode byte

// Reserved response values. A one-byte response has no separate error channel,
// so these share the value space with ordinary handler results.
const (
	ResultUnknownOpcode byte = 0xFF // opcode absent from the handler table
	ResultRateLimited   byte = 0xFE // rejected by the rate limiter
	ResultTimeout       byte = 0xFD // handler missed its deadline
	ResultHandlerPanic  byte = 0xFC // handler panicked
)

// Command is a decoded request: one opcode and its single operand.
type Command struct {
	Opcode  Opcode
	Operand byte
}

func (c Command) String() string {
	return fmt.Sprintf("op=%d arg=%d", c.Opcode, c.Operand)
}

// Response is the single result byte produced for a Command.
type Response struct {
	Result byte
}
