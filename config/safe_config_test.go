package config

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBotConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:        "helper",
			Token:       "bot-token-abc",
			Environment: "test",
		},
		Bridge: BridgeConfig{
			NATS: NATSConfig{
				URLs: []string{"nats://localhost:4222"},
			},
		},
	}
}

// TestSafeConfig_ThreadSafety verifies concurrent reads and writes don't race
func TestSafeConfig_ThreadSafety(t *testing.T) {
	sc := NewSafeConfig(testBotConfig())

	var wg sync.WaitGroup
	start := make(chan struct{})

	// Concurrent readers
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				_ = cfg.Bot.Name
				_ = cfg.Bridge.NATS.URLs
			}
		}()
	}

	// Concurrent writers
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 10; j++ {
				cfg := sc.Get()
				cfg.Bot.Environment = "prod"
				if err := sc.Update(cfg); err != nil {
					t.Errorf("update failed: %v", err)
					return
				}
			}
		}()
	}

	close(start)

	// Wait with timeout to catch deadlocks
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All goroutines completed
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for concurrent access to complete")
	}

	// Config should still be coherent
	final := sc.Get()
	assert.Equal(t, "helper", final.Bot.Name)
	assert.Equal(t, "prod", final.Bot.Environment)
}

// TestSafeConfig_NilHandling verifies nil configs are handled gracefully
func TestSafeConfig_NilHandling(t *testing.T) {
	sc := NewSafeConfig(nil)

	// Get on a nil-seeded config returns an empty config, not nil
	cfg := sc.Get()
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.Bot.Name)

	// Update with nil is rejected
	err := sc.Update(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

// TestSafeConfig_ValidationDuringUpdate verifies invalid updates are rejected
// and the previous config survives
func TestSafeConfig_ValidationDuringUpdate(t *testing.T) {
	sc := NewSafeConfig(testBotConfig())

	invalid := testBotConfig()
	invalid.Bot.Token = ""

	err := sc.Update(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	// Original config is untouched
	current := sc.Get()
	assert.Equal(t, "bot-token-abc", current.Bot.Token)
}

// TestSafeConfig_DeepCopy verifies Get returns an isolated copy
func TestSafeConfig_DeepCopy(t *testing.T) {
	sc := NewSafeConfig(testBotConfig())

	first := sc.Get()
	require.Len(t, first.Bridge.NATS.URLs, 1)

	// Mutate the copy, including its slice contents
	first.Bot.Name = "mutated"
	first.Bridge.NATS.URLs[0] = "nats://evil:4222"
	first.Bridge.NATS.URLs = append(first.Bridge.NATS.URLs, "nats://extra:4222")

	// A fresh Get must not observe the mutations
	second := sc.Get()
	assert.Equal(t, "helper", second.Bot.Name)
	assert.Equal(t, []string{"nats://localhost:4222"}, second.Bridge.NATS.URLs)
}

// TestConfigClone verifies deep copy semantics of Clone
func TestConfigClone(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "nil config",
			cfg:  nil,
		},
		{
			name: "empty config",
			cfg:  &Config{},
		},
		{
			name: "full config",
			cfg: &Config{
				Version: "1",
				Bot: BotConfig{
					Name:        "helper",
					Token:       "bot-token-abc",
					Environment: "prod",
				},
				API: APIConfig{
					BaseURL:   "https://api.example.com",
					Timeout:   10 * time.Second,
					RateLimit: 25,
					RateBurst: 5,
				},
				Bridge: BridgeConfig{
					Enabled:       true,
					SubjectPrefix: "chat.events",
					NATS: NATSConfig{
						URLs:          []string{"nats://a:4222", "nats://b:4222"},
						MaxReconnects: 10,
						ReconnectWait: 2 * time.Second,
					},
				},
				Logging: LoggingConfig{Level: "debug", Format: "text"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clone := tt.cfg.Clone()
			require.NotNil(t, clone)

			if tt.cfg == nil {
				assert.Equal(t, &Config{}, clone)
				return
			}

			assert.Equal(t, tt.cfg, clone)

			// Mutating the clone's slices must not leak back
			if len(clone.Bridge.NATS.URLs) > 0 {
				clone.Bridge.NATS.URLs[0] = "nats://mutated:4222"
				assert.NotEqual(t, tt.cfg.Bridge.NATS.URLs[0], clone.Bridge.NATS.URLs[0])
			}
		})
	}
}
