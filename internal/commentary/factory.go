package commentary

import (
	"os"

	"chronos-quant/internal/api"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/store"
)

// New builds the commentator for the configured capability. API keys come
// from OPENAI_API_KEY or CLAUDE_API_KEY; CLAUDE_API_ENDPOINT overrides the
// Anthropic endpoint for proxies.
func New(cfg *store.Config) (interfaces.Commentator, error) {
	capability, err := ParseCapability(cfg.Commentary.Capability)
	if err != nil {
		return nil, err
	}

	switch capability {
	case Template:
		return TemplateCommentator{}, nil
	case LLM:
		provider, err := ParseProvider(cfg.Commentary.Provider)
		if err != nil {
			return nil, err
		}
		lc := LLMConfig{
			Provider:    provider,
			Model:       cfg.Commentary.Model,
			Endpoint:    cfg.Commentary.Endpoint,
			MaxTokens:   cfg.Commentary.MaxTokens,
			Temperature: cfg.Commentary.Temperature,
			System:      cfg.Commentary.System,
			PromptBars:  cfg.Commentary.PromptBars,
		}
		switch provider {
		case OpenAI:
			lc.APIKey = os.Getenv("OPENAI_API_KEY")
		case Claude:
			lc.APIKey = os.Getenv("CLAUDE_API_KEY")
			if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" && lc.Endpoint == "" {
				lc.Endpoint = ep
			}
		}
		client := api.NewClient(api.WithTimeout(cfg.FetchTimeout()), api.WithLogging(true))
		return NewLLMCommentator(lc, client)
	}
	return Noop{}, nil
}
