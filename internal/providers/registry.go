package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/aioverview"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/chatgpt"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/claude"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/gemini"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/perplexity"
)

// Builder constructs the answer client for one platform
type Builder func(ctx context.Context, cfg *config.Config, pc config.PlatformConfig, deps Dependencies) (common.AnswerClient, error)

// DefaultBuilders maps every supported platform id to its client constructor
func DefaultBuilders() map[string]Builder {
	return map[string]Builder{
		config.PlatformChatGPT:    buildChatGPT,
		config.PlatformClaude:     buildClaude,
		config.PlatformGemini:     buildGemini,
		config.PlatformPerplexity: buildPerplexity,
		config.PlatformGoogleAI:   buildGoogleAI,
	}
}

func buildChatGPT(_ context.Context, cfg *config.Config, pc config.PlatformConfig, deps Dependencies) (common.AnswerClient, error) {
	return chatgpt.New(cfg.OpenAIAPIKey, pc, deps.Costs), nil
}

func buildClaude(_ context.Context, cfg *config.Config, pc config.PlatformConfig, deps Dependencies) (common.AnswerClient, error) {
	return claude.New(cfg.AnthropicAPIKey, pc, deps.Costs), nil
}

func buildGemini(ctx context.Context, cfg *config.Config, pc config.PlatformConfig, deps Dependencies) (common.AnswerClient, error) {
	return gemini.New(ctx, cfg.GeminiAPIKey, pc, deps.Costs)
}

func buildPerplexity(_ context.Context, cfg *config.Config, pc config.PlatformConfig, deps Dependencies) (common.AnswerClient, error) {
	switch pc.Transport {
	case "", "api":
		return perplexity.NewAPIClient(cfg.PerplexityAPIKey, pc, deps.Costs), nil
	case "brightdata":
		bd := common.NewBrightDataClient(cfg.BrightDataAPIKey, common.WithLogger(logging.Component(deps.Logger, "brightdata")))
		return perplexity.NewDatasetClient(bd, cfg.PerplexityDatasetID, deps.Location, deps.Costs), nil
	}
	return nil, fmt.Errorf("unknown perplexity transport %q", pc.Transport)
}

func buildGoogleAI(_ context.Context, cfg *config.Config, _ config.PlatformConfig, deps Dependencies) (common.AnswerClient, error) {
	return aioverview.New(cfg.BrightDataSERPAPIKey, deps.Location, deps.Costs,
		aioverview.WithLogger(logging.Component(deps.Logger, "aioverview"))), nil
}

type RegistryOption func(*registryOptions)

type registryOptions struct {
	builders map[string]Builder
}

// WithBuilder replaces the constructor used for one platform
func WithBuilder(platform string, b Builder) RegistryOption {
	return func(o *registryOptions) {
		o.builders[platform] = b
	}
}

// Registry owns the adapters of every enabled platform for the life of the
// process. Close releases their clients.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]PlatformAdapter
	order    []string
}

// NewRegistry builds one adapter per enabled platform. An enabled platform
// without a builder is a configuration error; anything already built is
// closed before returning it.
func NewRegistry(ctx context.Context, cfg *config.Config, deps Dependencies, opts ...RegistryOption) (*Registry, error) {
	o := &registryOptions{builders: DefaultBuilders()}
	for _, opt := range opts {
		opt(o)
	}

	r := &Registry{adapters: make(map[string]PlatformAdapter)}
	for _, pc := range cfg.EnabledPlatforms() {
		build, ok := o.builders[pc.Name]
		if !ok {
			r.Close()
			return nil, fmt.Errorf("unknown platform %q", pc.Name)
		}
		client, err := build(ctx, cfg, pc, deps)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to build %s client: %w", pc.Name, err)
		}
		r.Register(NewAdapter(client, pc, cfg.Visibility, deps))
		deps.Logger.Info().Str("platform", pc.Name).Int("concurrency", pc.Concurrency).Msg("Registered platform adapter")
	}
	return r, nil
}

// Register adds or replaces an adapter. The zero Registry is ready to use.
func (r *Registry) Register(a PlatformAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters == nil {
		r.adapters = make(map[string]PlatformAdapter)
	}
	if _, exists := r.adapters[a.Platform()]; !exists {
		r.order = append(r.order, a.Platform())
	}
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(platform string) (PlatformAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	return a, ok
}

// Platforms returns the registered platform ids in registration order
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Adapters resolves names to adapters. An empty list selects every
// registered platform.
func (r *Registry) Adapters(names []string) ([]PlatformAdapter, error) {
	if len(names) == 0 {
		names = r.Platforms()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PlatformAdapter, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		a, ok := r.adapters[name]
		if !ok {
			return nil, fmt.Errorf("platform %q is not enabled", name)
		}
		out = append(out, a)
	}
	return out, nil
}

// Close closes every adapter and reports all failures
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, name := range r.order {
		if err := r.adapters[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	r.adapters = make(map[string]PlatformAdapter)
	r.order = nil
	return errors.Join(errs...)
}
