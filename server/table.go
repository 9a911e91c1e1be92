package server

import (
	"fmt"

	"portbridge/handlers"
	"portbridge/message"
)

// table maps opcodes to handlers. It is filled before Serve and read-only afterwards.
type table map[message.Opcode]handlers.Func

func (t table) register(op message.Opcode, fn handlers.Func) error {
	if fn == nil {
		return fmt.Errorf("server: nil handler for opcode %d", op)
	}
	if _, ok := t[op]; ok {
		return fmt.Errorf("server: opcode %d already registered", op)
	}
	t[op] = fn
	return nil
}

func (t table) lookup(op message.Opcode) (handlers.Func, bool) {
	fn, ok := t[op]
	return fn, ok
}
