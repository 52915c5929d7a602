package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/internal/pkg/core"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/agent"
	"github.com/kiosk404/sankhya-agent/pkg/errorx"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

// TurnRunner answers one conversation turn.
type TurnRunner interface {
	Run(ctx context.Context, transcript []*schema.Message) *agent.TurnResult
}

// ChatCompletionsHandler handles POST /v1/chat/completions. The whole turn
// runs before anything is written; stream=true delivers the answer as one
// SSE chunk followed by [DONE].
type ChatCompletionsHandler struct {
	runner       TurnRunner
	defaultModel string
}

func NewChatCompletionsHandler(runner TurnRunner, defaultModel string) *ChatCompletionsHandler {
	if defaultModel == "" {
		defaultModel = "sankhya-agent"
	}
	return &ChatCompletionsHandler{runner: runner, defaultModel: defaultModel}
}

func (h *ChatCompletionsHandler) Handle(c *gin.Context) {
	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind chat completion request"), nil)
		return
	}
	if len(req.Messages) == 0 {
		core.WriteResponse(c, errorx.WithCode(ErrMessagesEmpty, "messages array is required and must not be empty"), nil)
		return
	}

	transcript := toTranscript(req.Messages)
	if agent.LastUserMessage(transcript) == "" {
		core.WriteResponse(c, errorx.WithCode(ErrNoUserMessage, "no user message found in messages array"), nil)
		return
	}

	res := h.runner.Run(c.Request.Context(), transcript)
	model := req.Model
	if model == "" {
		model = h.defaultModel
	}
	completionID := "chatcmpl-" + res.ID
	if len(res.ID) > 8 {
		completionID = "chatcmpl-" + res.ID[:8]
	}

	if req.Stream {
		h.handleStream(c, res, completionID, model)
		return
	}
	c.JSON(http.StatusOK, ChatCompletionResponse{
		ID:      completionID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChatCompletionChoice{{
			Index:        0,
			Message:      &ChatMessage{Role: string(schema.Assistant), Content: res.Text},
			FinishReason: finishReason(res),
		}},
		Turn: turnInfo(res),
	})
}

func (h *ChatCompletionsHandler) handleStream(c *gin.Context, res *agent.TurnResult, completionID, model string) {
	created := time.Now().Unix()
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	reason := finishReason(res)
	chunks := []ChatCompletionChunk{
		{
			Choices: []ChatCompletionChunkChoice{{
				Delta: &ChatMessageDelta{Role: string(schema.Assistant), Content: res.Text},
			}},
		},
		{
			Choices: []ChatCompletionChunkChoice{{Delta: &ChatMessageDelta{}, FinishReason: &reason}},
			Turn:    turnInfo(res),
		},
	}
	for _, chunk := range chunks {
		chunk.ID, chunk.Object, chunk.Created, chunk.Model = completionID, "chat.completion.chunk", created, model
		data, err := json.MarshalString(chunk)
		if err != nil {
			logger.Warn("[ChatCompletions] encode chunk (code=%d): %v", ErrEncodeChunk, err)
			return
		}
		c.Render(-1, sse.Event{Data: data})
		c.Writer.Flush()
	}
	c.Render(-1, sse.Event{Data: "[DONE]"})
	c.Writer.Flush()
}

// toTranscript keeps the user and assistant turns. System and tool messages
// from the client are dropped: the agent builds its own instruction and runs
// its own tools.
func toTranscript(msgs []ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "user":
			out = append(out, schema.UserMessage(m.Content))
		case "assistant":
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			logger.Debug("[ChatCompletions] dropping %s message", m.Role)
		}
	}
	return out
}

func finishReason(res *agent.TurnResult) string {
	if res.Outcome == agent.OutcomeRoundLimit {
		return "length"
	}
	return "stop"
}

func turnInfo(res *agent.TurnResult) *TurnInfo {
	info := &TurnInfo{Outcome: string(res.Outcome), Rounds: res.Rounds}
	for _, call := range res.Calls {
		info.Tools = append(info.Tools, ToolCallInfo{
			Name:      call.Name,
			Failed:    call.Failed,
			Corrected: call.Corrected,
			Learned:   call.Learned,
		})
	}
	if res.Failure != nil {
		info.Failure = res.Failure.Kind.String()
	}
	return info
}
