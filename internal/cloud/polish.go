package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcript"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Polish sends req.Text through {base}/chat/completions.
func (c *Client) Polish(ctx context.Context, req session.PolishRequest) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.PolishModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode polish request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build polish request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", invalidResponse("decode polish response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", invalidResponse("polish response has no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", invalidResponse("polish response is empty")
	}
	return text, nil
}

func systemPrompt(req session.PolishRequest) string {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = session.DefaultPolishPrompt
	}
	if instruction := styleInstruction(req.Style); instruction != "" {
		prompt += "\n\n" + instruction
	}
	return prompt
}

func styleInstruction(style transcript.Style) string {
	switch style {
	case transcript.StyleFullWidth:
		return "Use full-width punctuation (，。？！) in Chinese, Japanese, or Korean text."
	case transcript.StyleHalfWidth:
		return "Use half-width ASCII punctuation everywhere."
	case transcript.StyleSpaces:
		return "Do not punctuate Chinese, Japanese, or Korean text; separate clauses with a single space."
	default:
		return ""
	}
}
