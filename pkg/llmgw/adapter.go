package llmgw

import (
	"fmt"
	"net/http"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw/anthropic"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw/openai"
)

// httpClientTimeout bounds non-streaming calls; streaming requests use the
// request context instead (§4.7: "no timeout is applied to LLM streaming").
const httpClientTimeout = 60 * time.Second

func buildAdapter(name string, cfg config.LLMProviderConfig) (Provider, error) {
	client := &http.Client{Timeout: httpClientTimeout}

	switch name {
	case "anthropic":
		return anthropicAdapter{client: anthropic.NewClient(client, cfg.APIKey, cfg.Model)}, nil
	case "openai":
		return openAIAdapter{client: openai.NewClient(client, cfg.APIKey, cfg.Model)}, nil
	default:
		return nil, fmt.Errorf("no adapter for provider %q", name)
	}
}
