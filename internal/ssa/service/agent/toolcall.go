package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

// ToolResult is the outcome of one tool call as fed back to the provider.
type ToolResult struct {
	CallID  string
	Name    string
	Args    map[string]any
	Content string
	// Found is false when the snapshot has no such tool.
	Found bool
	// Failed is set when the call raised instead of returning a result.
	Failed bool
	// Corrected is set when self-correction replaced the first result.
	Corrected bool
	// Learned is the rule id proposed by auto-learning, if any.
	Learned string
}

func (r ToolResult) message(index int) *schema.Message {
	id := r.CallID
	if id == "" {
		id = fmt.Sprintf("call_%d", index)
	}
	msg := schema.ToolMessage(r.Content, id)
	msg.ToolName = r.Name
	return msg
}

// notFoundResult is the JSON error object returned for unknown tools.
func notFoundResult(name string) string {
	out, err := json.MarshalString(map[string]string{
		"error": fmt.Sprintf("Ferramenta '%s' não encontrada.", name),
	})
	if err != nil {
		return fmt.Sprintf(`{"error": "Ferramenta '%s' não encontrada."}`, name)
	}
	return out
}

func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.UnmarshalString(raw, &args); err != nil {
		return nil, fmt.Errorf("argumentos inválidos: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// execute runs one tool call against snap, then the self-correction and
// auto-learning hooks.
func (c *Controller) execute(ctx context.Context, snap *tools.Snapshot, call schema.ToolCall) ToolResult {
	res := ToolResult{CallID: call.ID, Name: call.Function.Name}

	t, ok := snap.Get(res.Name)
	if !ok {
		logger.WarnX(ModuleName, "model called unknown tool %q", res.Name)
		res.Content = notFoundResult(res.Name)
		return res
	}
	res.Found = true

	args, err := decodeArguments(call.Function.Arguments)
	if err != nil {
		res.Failed = true
		res.Content = toolErrorPrefix + err.Error()
		return res
	}
	res.Args = args

	callCtx := ctx
	if c.toolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.toolTimeout)
		defer cancel()
	}

	out, err := t.Invoke(callCtx, args)
	if err != nil {
		res.Failed = true
		out = toolErrorPrefix + err.Error()
	}
	res.Content = out

	if fixed, ok := c.corrector.MaybeRetry(callCtx, t, args, res.Content); ok {
		res.Content = fixed
		res.Corrected = true
		res.Failed = false
	}
	res.Learned = c.learner.MaybeLearn(ctx, res.Name, res.Content, snap)
	return res
}
