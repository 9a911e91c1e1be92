// Package handlers holds the opcode table served by the portbridge worker.
package handlers

import "portbridge/message"

const (
	OpFoo message.Opcode = 1
	OpBar message.Opcode = 2
)

// Func computes a one-byte result from a one-byte operand. Implementations
// must return promptly and must not touch the worker's streams.
type Func func(x byte) byte

// Foo returns x+1, wrapping at 256.
func Foo(x byte) byte { return x + 1 }

// Bar returns 2*x, wrapping at 256.
func Bar(x byte) byte { return x * 2 }

// Table returns a fresh opcode table. Callers may extend it before handing it
// to the server.
func Table() map[message.Opcode]Func {
	return map[message.Opcode]Func{
		OpFoo: Foo,
		OpBar: Bar,
	}
}
