package cli

import (
	"github.com/ppiankov/verdict/internal/api"
	"github.com/ppiankov/verdict/internal/llm"
	"github.com/ppiankov/verdict/internal/worker"
)

// Components shared by the commands, built from the loaded config.

func newLimiter() *worker.Limiter {
	return worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
}

func newAPIClient(limiter *worker.Limiter) *api.Client {
	return api.NewClient(cfg.API, limiter, logger)
}

// newDigester returns nil when digests were not requested
func newDigester(requested bool, provider, modelName string) (*llm.Digester, error) {
	if !requested {
		return nil, nil
	}
	c := llm.ConfigFromModel(cfg.LLM)
	if provider != "" {
		c.Provider = provider
	}
	if modelName != "" {
		c.Model = modelName
	}
	if c.Provider == "" {
		c.Provider = "openai"
	}
	return llm.NewDigester(c, logger)
}
