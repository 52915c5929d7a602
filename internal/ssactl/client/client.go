// Package client is the HTTP client of the ssa API.
package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiosk404/sankhya-agent/internal/pkg/core"
	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

// Client talks to an ssa server.
type Client struct {
	BaseURL    string
	Token      string
	Model      string
	HTTPClient *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

// StreamCallback is called for each text delta during streaming.
type StreamCallback func(delta string)

// Reply is the outcome of one chat request.
type Reply struct {
	Content string
	Turn    *v1.TurnInfo
}

// ChatStream sends messages with stream=true and calls cb for each delta.
func (c *Client) ChatStream(ctx context.Context, messages []v1.ChatMessage, cb StreamCallback) (*Reply, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", v1.ChatCompletionRequest{
		Model:    c.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	reply := &Reply{}
	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var chunk v1.ChatCompletionChunk
		if err := json.UnmarshalString(data, &chunk); err != nil {
			continue
		}
		if chunk.Turn != nil {
			reply.Turn = chunk.Turn
		}
		for _, choice := range chunk.Choices {
			if choice.Delta != nil && choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				if cb != nil {
					cb(choice.Delta.Content)
				}
			}
		}
	}
	reply.Content = content.String()
	if err := scanner.Err(); err != nil {
		return reply, fmt.Errorf("read stream: %w", err)
	}
	return reply, nil
}

// Chat sends messages and waits for the whole answer.
func (c *Client) Chat(ctx context.Context, messages []v1.ChatMessage) (*Reply, error) {
	var out v1.ChatCompletionResponse
	if err := c.call(ctx, http.MethodPost, "/v1/chat/completions", v1.ChatCompletionRequest{
		Model:    c.Model,
		Messages: messages,
	}, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return nil, fmt.Errorf("empty response from server")
	}
	return &Reply{Content: out.Choices[0].Message.Content, Turn: out.Turn}, nil
}

func (c *Client) ListTools(ctx context.Context) (*v1.ToolListResponse, error) {
	var out v1.ToolListResponse
	return &out, c.call(ctx, http.MethodGet, "/v1/tools", nil, &out)
}

func (c *Client) ReloadTools(ctx context.Context) (*v1.ToolListResponse, error) {
	var out v1.ToolListResponse
	return &out, c.call(ctx, http.MethodPost, "/v1/tools/reload", nil, &out)
}

func (c *Client) ListRules(ctx context.Context) (*v1.RuleListResponse, error) {
	var out v1.RuleListResponse
	return &out, c.call(ctx, http.MethodGet, "/v1/rules", nil, &out)
}

func (c *Client) ApproveRule(ctx context.Context, id string) (*v1.RuleResponse, error) {
	var out v1.RuleResponse
	return &out, c.call(ctx, http.MethodPost, "/v1/rules/"+url.PathEscape(id)+"/approve", nil, &out)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	return resp, nil
}

// decodeError turns an error envelope into an error.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var env core.ErrResponse
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error.Message)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
