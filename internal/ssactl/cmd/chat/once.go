package chat

import (
	"context"
	"fmt"

	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/client"
)

func (o *ChatOptions) runOnce(ctx context.Context, cli *client.Client, message string) error {
	ctx, cancel := context.WithTimeout(ctx, o.TurnTimeout)
	defer cancel()

	reply, err := cli.ChatStream(ctx, []v1.ChatMessage{{Role: "user", Content: message}}, func(delta string) {
		fmt.Fprint(o.Out, delta)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out)
	if o.Details && reply.Turn != nil {
		fmt.Fprintln(o.ErrOut, describeTurn(reply.Turn))
	}
	return nil
}
