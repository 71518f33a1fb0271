package providers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/providers"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
	fixtures "github.com/AI-Template-SDK/senso-geo/internal/providers/testutil"
)

// fakeBuilders returns builders for every platform that hand out scripted
// clients, plus the clients so tests can inspect them.
func fakeBuilders() ([]providers.RegistryOption, map[string]*fixtures.FakeAnswerClient) {
	clients := make(map[string]*fixtures.FakeAnswerClient)
	var opts []providers.RegistryOption
	for name := range providers.DefaultBuilders() {
		name := name
		clients[name] = &fixtures.FakeAnswerClient{Platform: name}
		opts = append(opts, providers.WithBuilder(name, func(context.Context, *config.Config, config.PlatformConfig, providers.Dependencies) (common.AnswerClient, error) {
			return clients[name], nil
		}))
	}
	return opts, clients
}

func TestNewRegistryBuildsEnabledPlatforms(t *testing.T) {
	cfg := fixtures.SampleConfig()
	cfg.Platforms[1].Enabled = false // claude

	opts, clients := fakeBuilders()
	reg, err := providers.NewRegistry(context.Background(), cfg, providers.Dependencies{Logger: zerolog.Nop()}, opts...)
	require.NoError(t, err)

	assert.Equal(t, []string{
		config.PlatformChatGPT,
		config.PlatformGemini,
		config.PlatformPerplexity,
		config.PlatformGoogleAI,
	}, reg.Platforms())

	_, ok := reg.Get(config.PlatformClaude)
	assert.False(t, ok)

	a, ok := reg.Get(config.PlatformGemini)
	require.True(t, ok)
	assert.Equal(t, config.PlatformGemini, a.Platform())
	assert.Equal(t, 2, a.Concurrency())

	require.NoError(t, reg.Close())
	for name, c := range clients {
		if name == config.PlatformClaude {
			assert.False(t, c.Closed())
			continue
		}
		assert.True(t, c.Closed(), name)
	}
	assert.Empty(t, reg.Platforms())
}

func TestRegistryAdapters(t *testing.T) {
	opts, _ := fakeBuilders()
	reg, err := providers.NewRegistry(context.Background(), fixtures.SampleConfig(), providers.Dependencies{Logger: zerolog.Nop()}, opts...)
	require.NoError(t, err)
	defer reg.Close()

	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr bool
	}{
		{"all by default", nil, reg.Platforms(), false},
		{"subset keeps requested order", []string{config.PlatformGoogleAI, config.PlatformChatGPT}, []string{config.PlatformGoogleAI, config.PlatformChatGPT}, false},
		{"duplicates collapse", []string{config.PlatformClaude, config.PlatformClaude}, []string{config.PlatformClaude}, false},
		{"unknown platform", []string{"bing_chat"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapters, err := reg.Adapters(tt.names)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, a := range adapters {
				got = append(got, a.Platform())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRegistryUnknownPlatform(t *testing.T) {
	cfg := fixtures.SampleConfig()
	cfg.Platforms = append(cfg.Platforms, config.PlatformConfig{Name: "bing_chat", Enabled: true, Concurrency: 1})

	opts, clients := fakeBuilders()
	_, err := providers.NewRegistry(context.Background(), cfg, providers.Dependencies{Logger: zerolog.Nop()}, opts...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bing_chat")

	// adapters built before the failure are released
	assert.True(t, clients[config.PlatformChatGPT].Closed())
}

func TestNewRegistryBuilderFailure(t *testing.T) {
	opts, _ := fakeBuilders()
	opts = append(opts, providers.WithBuilder(config.PlatformGemini, func(context.Context, *config.Config, config.PlatformConfig, providers.Dependencies) (common.AnswerClient, error) {
		return nil, errors.New("bad credentials")
	}))

	_, err := providers.NewRegistry(context.Background(), fixtures.SampleConfig(), providers.Dependencies{Logger: zerolog.Nop()}, opts...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestNewRegistryDefaultBuilders(t *testing.T) {
	cfg := fixtures.SampleConfig()
	for i := range cfg.Platforms {
		// the gemini SDK client is covered by its own package tests
		if cfg.Platforms[i].Name == config.PlatformGemini {
			cfg.Platforms[i].Enabled = false
		}
	}

	for _, transport := range []string{"api", "brightdata"} {
		t.Run(transport, func(t *testing.T) {
			for i := range cfg.Platforms {
				if cfg.Platforms[i].Name == config.PlatformPerplexity {
					cfg.Platforms[i].Transport = transport
				}
			}
			reg, err := providers.NewRegistry(context.Background(), cfg, providers.Dependencies{
				Logger:   zerolog.Nop(),
				Costs:    common.FlatCost(0),
				Location: fixtures.SampleLocation(),
			})
			require.NoError(t, err)
			assert.Len(t, reg.Platforms(), 4)
			assert.NoError(t, reg.Close())
		})
	}
}

func TestNewRegistryRejectsUnknownTransport(t *testing.T) {
	cfg := fixtures.SampleConfig()
	cfg.Platforms[3].Transport = "carrier-pigeon"

	_, err := providers.NewRegistry(context.Background(), cfg, providers.Dependencies{Logger: zerolog.Nop()},
		providers.WithBuilder(config.PlatformGemini, func(context.Context, *config.Config, config.PlatformConfig, providers.Dependencies) (common.AnswerClient, error) {
			return &fixtures.FakeAnswerClient{Platform: config.PlatformGemini}, nil
		}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
