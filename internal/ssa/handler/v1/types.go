package v1

import (
	"time"
)

// --- OpenAI Chat Completions API Types ---

// ChatCompletionRequest is the OpenAI-compatible request body for
// /v1/chat/completions. Sampling fields are accepted and ignored; the
// provider settings come from the server configuration.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
	User     string        `json:"user,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ChatMessage is a single message in the OpenAI Chat Completions format.
type ChatMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ChatCompletionResponse is the OpenAI-compatible non-streaming response.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	// Turn describes how the agent produced the answer.
	Turn *TurnInfo `json:"turn,omitempty"`
}

// ChatCompletionChoice is a single choice in the response.
type ChatCompletionChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason"`
}

// ChatCompletionChunk is a single SSE chunk for streaming responses.
type ChatCompletionChunk struct {
	ID      string                      `json:"id"`
	Object  string                      `json:"object"`
	Created int64                       `json:"created"`
	Model   string                      `json:"model"`
	Choices []ChatCompletionChunkChoice `json:"choices"`
	Turn    *TurnInfo                   `json:"turn,omitempty"`
}

// ChatCompletionChunkChoice is a single choice in a streaming chunk.
type ChatCompletionChunkChoice struct {
	Index        int               `json:"index"`
	Delta        *ChatMessageDelta `json:"delta"`
	FinishReason *string           `json:"finish_reason"`
}

// ChatMessageDelta is the delta payload in streaming mode.
type ChatMessageDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// TurnInfo summarizes one agent turn.
type TurnInfo struct {
	Outcome string         `json:"outcome"`
	Rounds  int            `json:"rounds"`
	Tools   []ToolCallInfo `json:"tools,omitempty"`
	// Failure is the classified provider failure of a fallback turn.
	Failure string `json:"failure,omitempty"`
}

// ToolCallInfo is one tool execution of a turn.
type ToolCallInfo struct {
	Name      string `json:"name"`
	Failed    bool   `json:"failed,omitempty"`
	Corrected bool   `json:"corrected,omitempty"`
	Learned   string `json:"learned,omitempty"`
}

// --- Models API ---

type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type ModelListResponse struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

// --- Tools API ---

type ToolListResponse struct {
	Version  uint64          `json:"version"`
	LoadedAt string          `json:"loaded_at"`
	Tools    []ToolResponse  `json:"tools"`
	Errors   []LoadErrorInfo `json:"errors,omitempty"`
}

type ToolResponse struct {
	Name        string          `json:"name"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
	Params      []ParamResponse `json:"params,omitempty"`
}

type ParamResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

type LoadErrorInfo struct {
	Source string `json:"source"`
	Module string `json:"module"`
	Error  string `json:"error"`
}

// --- Rules API ---

type RuleResponse struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	ProposedAt  string `json:"proposed_at,omitempty"`
	ApprovedAt  string `json:"approved_at,omitempty"`
}

type RuleListResponse struct {
	Active  []RuleResponse `json:"active"`
	Pending []RuleResponse `json:"pending"`
}

// --- Common ---

const timeFormat = time.RFC3339

// FormatTime formats a time value for API responses.
func FormatTime(t time.Time) string {
	return t.Format(timeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}
