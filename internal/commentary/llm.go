package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chronos-quant/internal/api"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultClaudeEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	defaultSystem         = "You are a disciplined equities trader. Answer briefly in the requested format."
)

type LLMConfig struct {
	Provider    Provider
	Model       string
	Endpoint    string
	APIKey      string
	MaxTokens   int
	Temperature float32
	System      string
	PromptBars  int
}

// LLMCommentator asks a chat model for the recommendation and fills the
// report fields from the readings, like the template.
type LLMCommentator struct {
	cfg    LLMConfig
	client *api.Client
}

var _ interfaces.Commentator = (*LLMCommentator)(nil)

func NewLLMCommentator(cfg LLMConfig, client *api.Client) (*LLMCommentator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key missing", strings.ToLower(string(cfg.Provider)))
	}
	if cfg.Model == "" {
		return nil, errors.New("commentary.model is required for LLM commentary")
	}
	if cfg.Endpoint == "" {
		switch cfg.Provider {
		case OpenAI:
			cfg.Endpoint = defaultOpenAIEndpoint
		case Claude:
			cfg.Endpoint = defaultClaudeEndpoint
		default:
			return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
		}
	}
	if cfg.System == "" {
		cfg.System = defaultSystem
	}
	if client == nil {
		client = api.NewClient()
	}
	return &LLMCommentator{cfg: cfg, client: client}, nil
}

func (l *LLMCommentator) Capability() string { return string(LLM) }

func (l *LLMCommentator) Comment(ctx context.Context, req types.CommentaryRequest) (types.Commentary, error) {
	prompt := BuildPrompt(req, l.cfg.PromptBars)

	var (
		text string
		err  error
	)
	switch l.cfg.Provider {
	case OpenAI:
		text, err = l.openAI(ctx, prompt)
	case Claude:
		text, err = l.claude(ctx, prompt)
	default:
		err = fmt.Errorf("unknown llm provider %q", l.cfg.Provider)
	}
	if err != nil {
		return types.Commentary{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Commentary{}, fmt.Errorf("%s returned an empty completion", strings.ToLower(string(l.cfg.Provider)))
	}

	return types.Commentary{
		Capability:      string(LLM),
		IndicatorReport: IndicatorReport(req),
		PatternReport:   PatternReport(req),
		TrendReport:     TrendReport(req),
		Recommendation:  text,
	}, nil
}

func (l *LLMCommentator) openAI(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": l.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": l.cfg.System},
			{"role": "user", "content": prompt},
		},
		"temperature": l.cfg.Temperature,
		"max_tokens":  l.cfg.MaxTokens,
	}
	resp, err := l.client.POST(ctx, l.cfg.Endpoint, body, map[string]string{
		"Authorization": "Bearer " + l.cfg.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return r.Choices[0].Message.Content, nil
}

func (l *LLMCommentator) claude(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       l.cfg.Model,
		"system":      l.cfg.System,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  l.cfg.MaxTokens,
		"temperature": l.cfg.Temperature,
	}
	resp, err := l.client.POST(ctx, l.cfg.Endpoint, body, map[string]string{
		"x-api-key":         l.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	})
	if err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", fmt.Errorf("claude: %w", err)
	}
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("claude: no text content")
	}
	return strings.Join(parts, "\n"), nil
}
