package client

import (
	"context"

	"go.uber.org/multierr"

	"portbridge/loadbalance"
	"portbridge/message"
)

// Group spreads calls over several clients. Each member is still lock-step;
// different members can be called in parallel.
type Group struct {
	members  []*Client
	balancer loadbalance.Balancer
}

func NewGroup(bal loadbalance.Balancer, members ...*Client) *Group {
	return &Group{members: members, balancer: bal}
}

// Call picks a member with the balancer and forwards the command to it.
func (g *Group) Call(ctx context.Context, op message.Opcode, operand byte) (byte, error) {
	cmd := message.Command{Opcode: op, Operand: operand}
	idx, err := g.balancer.Pick(len(g.members), cmd)
	if err != nil {
		return 0, err
	}
	return g.members[idx].Call(ctx, op, operand)
}

func (g *Group) Len() int {
	return len(g.members)
}

// Close closes every member, even after a failure, and combines their errors.
func (g *Group) Close() error {
	var err error
	for _, m := range g.members {
		err = multierr.Append(err, m.Close())
	}
	return err
}
