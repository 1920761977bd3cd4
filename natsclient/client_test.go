package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/botkit/metric"
)

// streamConfig builds a minimal JetStream stream config for tests.
func streamConfig(name string, subjects ...string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	}
}

// Test basic client creation
func TestNewClient(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	assert.NotNil(t, client)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

// Test URL joining for clustered servers
func TestNewClient_MultipleURLs(t *testing.T) {
	client, err := NewClient([]string{"nats://a:4222", "nats://b:4222"})
	assert.NoError(t, err)
	assert.Equal(t, "nats://a:4222,nats://b:4222", client.URL())
}

// Test empty URL list rejection
func TestNewClient_NoURLs(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no server URLs")
}

// Test circuit breaker opens after failures
func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient([]string{"nats://invalid:4222"})
	assert.NoError(t, err)

	// Record 4 failures - should not open
	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	// 5th failure should open circuit
	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())
}

// Test circuit breaker reset
func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	// Record failures to open circuit
	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, StatusCircuitOpen, client.Status())

	// Reset circuit
	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.NotEqual(t, StatusCircuitOpen, client.Status())
}

// Test exponential backoff
func TestCircuitBreaker_ExponentialBackoff(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	// Initial backoff should be 1 second
	assert.Equal(t, time.Second, client.Backoff())

	// Record failures and check backoff increases
	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	// Another round of failures
	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, 4*time.Second, client.Backoff())

	// Backoff should cap at max (1 minute)
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			client.recordFailure()
		}
	}
	assert.LessOrEqual(t, client.Backoff(), time.Minute)
}

// Test custom circuit breaker threshold
func TestCircuitBreaker_CustomThreshold(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"},
		WithCircuitBreakerThreshold(2),
	)
	assert.NoError(t, err)

	client.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
}

// Test status transitions
func TestStatus_Transitions(t *testing.T) {
	tests := []struct {
		name           string
		initialStatus  ConnectionStatus
		action         func(*Client)
		expectedStatus ConnectionStatus
	}{
		{
			name:          "disconnected to connecting",
			initialStatus: StatusDisconnected,
			action: func(c *Client) {
				c.setStatus(StatusConnecting)
			},
			expectedStatus: StatusConnecting,
		},
		{
			name:          "connecting to connected",
			initialStatus: StatusConnecting,
			action: func(c *Client) {
				c.setStatus(StatusConnected)
			},
			expectedStatus: StatusConnected,
		},
		{
			name:          "connected to reconnecting",
			initialStatus: StatusConnected,
			action: func(c *Client) {
				c.setStatus(StatusReconnecting)
			},
			expectedStatus: StatusReconnecting,
		},
		{
			name:          "any to circuit open",
			initialStatus: StatusConnected,
			action: func(c *Client) {
				for i := 0; i < 5; i++ {
					c.recordFailure()
				}
			},
			expectedStatus: StatusCircuitOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient([]string{"nats://localhost:4222"})
			assert.NoError(t, err)
			client.setStatus(tt.initialStatus)

			tt.action(client)

			assert.Equal(t, tt.expectedStatus, client.Status())
		})
	}
}

// Test concurrent safety
func TestConcurrentSafety(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	var wg sync.WaitGroup
	iterations := 100

	// Concurrent status updates
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			client.setStatus(StatusConnecting)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			client.setStatus(StatusConnected)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = client.Status()
		}
	}()

	// Concurrent failure recording
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			client.recordFailure()
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			client.resetCircuit()
		}
	}()

	wg.Wait()

	// Should not panic and should have valid state
	status := client.Status()
	assert.Contains(t, []ConnectionStatus{
		StatusDisconnected,
		StatusConnecting,
		StatusConnected,
		StatusReconnecting,
		StatusCircuitOpen,
	}, status)
}

// Test IsHealthy logic
func TestIsHealthy(t *testing.T) {
	tests := []struct {
		name     string
		status   ConnectionStatus
		expected bool
	}{
		{"connected is healthy", StatusConnected, true},
		{"disconnected is not healthy", StatusDisconnected, false},
		{"connecting is not healthy", StatusConnecting, false},
		{"reconnecting is not healthy", StatusReconnecting, false},
		{"circuit open is not healthy", StatusCircuitOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient([]string{"nats://localhost:4222"})
			assert.NoError(t, err)
			client.setStatus(tt.status)
			assert.Equal(t, tt.expected, client.IsHealthy())
		})
	}
}

// Test WaitForConnection with timeout
func TestWaitForConnection(t *testing.T) {
	t.Run("times out when not connected", func(t *testing.T) {
		client, err := NewClient([]string{"nats://localhost:4222"})
		assert.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err = client.WaitForConnection(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("returns immediately when connected", func(t *testing.T) {
		client, err := NewClient([]string{"nats://localhost:4222"})
		assert.NoError(t, err)
		client.setStatus(StatusConnected)

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		start := time.Now()
		err = client.WaitForConnection(ctx)
		elapsed := time.Since(start)

		assert.NoError(t, err)
		assert.Less(t, elapsed, 100*time.Millisecond)
	})

	t.Run("returns when becomes connected", func(t *testing.T) {
		client, err := NewClient([]string{"nats://localhost:4222"})
		assert.NoError(t, err)

		// Simulate connection after delay
		go func() {
			time.Sleep(50 * time.Millisecond)
			client.setStatus(StatusConnected)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err = client.WaitForConnection(ctx)
		assert.NoError(t, err)
		assert.Equal(t, StatusConnected, client.Status())
	})
}

// Test offline behavior of messaging methods
func TestOfflineOperations(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)
	ctx := context.Background()

	err = client.Publish(ctx, "test.subject", []byte("data"))
	assert.Equal(t, ErrNotConnected, err)

	err = client.Subscribe(ctx, "test.subject", func(_ context.Context, _ []byte) {})
	assert.Equal(t, ErrNotConnected, err)

	err = client.PublishToStream(ctx, "test.subject", []byte("data"))
	assert.Equal(t, ErrNotConnected, err)

	_, err = client.EnsureStream(ctx, streamConfig("TEST", "test.*"))
	assert.Equal(t, ErrNotConnected, err)

	_, err = client.RTT()
	assert.Equal(t, ErrNotConnected, err)

	// Close succeeds even when never connected
	err = client.Close(ctx)
	assert.NoError(t, err)
}

// Test circuit-open behavior of messaging methods
func TestCircuitOpenOperations(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	require.Equal(t, StatusCircuitOpen, client.Status())

	ctx := context.Background()

	err = client.PublishToStream(ctx, "test.subject", []byte("data"))
	assert.Equal(t, ErrCircuitOpen, err)

	_, err = client.EnsureStream(ctx, streamConfig("TEST", "test.*"))
	assert.Equal(t, ErrCircuitOpen, err)
}

// Test connection options
func TestConnectionOptions(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"},
		WithMaxReconnects(10),
		WithReconnectWait(5*time.Second),
		WithPingInterval(30*time.Second),
	)
	assert.NoError(t, err)

	// Should have default options
	opts := client.ConnectionOptions()
	assert.NotNil(t, opts)

	// Verify options were set
	assert.Equal(t, 10, client.MaxReconnects())
	assert.Equal(t, 5*time.Second, client.ReconnectWait())
	assert.Equal(t, 30*time.Second, client.PingInterval())
}

// Test status snapshot
func TestGetStatus(t *testing.T) {
	client, err := NewClient([]string{"nats://localhost:4222"})
	assert.NoError(t, err)

	// Record some failures
	for i := 0; i < 3; i++ {
		client.recordFailure()
	}

	status := client.GetStatus()
	assert.NotNil(t, status)
	assert.Equal(t, int32(3), status.FailureCount)
	assert.Equal(t, StatusDisconnected, status.Status)
	assert.NotZero(t, status.LastFailureTime)

	// Reset and check
	client.resetCircuit()
	status = client.GetStatus()
	assert.Equal(t, int32(0), status.FailureCount)
}

// Test connectivity metrics wiring
func TestConnectivityMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	client, err := NewClient([]string{"nats://localhost:4222"},
		WithMetrics(registry.CoreMetrics()),
	)
	require.NoError(t, err)

	// Simulate lifecycle transitions via the NATS handlers
	client.handleReconnect(nil)
	client.handleReconnect(nil)
	client.handleDisconnect(nil, nil)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var connected, reconnects float64
	for _, mf := range families {
		switch mf.GetName() {
		case "botkit_nats_connected":
			connected = mf.GetMetric()[0].GetGauge().GetValue()
		case "botkit_nats_reconnects_total":
			reconnects = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	assert.Equal(t, 0.0, connected, "last transition was a disconnect")
	assert.Equal(t, 2.0, reconnects)
}

// Table-driven tests for various scenarios
func TestClientScenarios(t *testing.T) {
	scenarios := []struct {
		name     string
		setup    func(*Client)
		action   func(*Client)
		validate func(*testing.T, *Client)
	}{
		{
			name: "successful connection flow",
			setup: func(c *Client) {
				c.setStatus(StatusDisconnected)
			},
			action: func(c *Client) {
				c.setStatus(StatusConnecting)
				c.setStatus(StatusConnected)
				c.resetCircuit()
			},
			validate: func(t *testing.T, c *Client) {
				assert.Equal(t, StatusConnected, c.Status())
				assert.True(t, c.IsHealthy())
				assert.Equal(t, int32(0), c.Failures())
			},
		},
		{
			name: "connection failure and circuit break",
			setup: func(c *Client) {
				c.setStatus(StatusConnecting)
			},
			action: func(c *Client) {
				for i := 0; i < 5; i++ {
					c.recordFailure()
				}
			},
			validate: func(t *testing.T, c *Client) {
				assert.Equal(t, StatusCircuitOpen, c.Status())
				assert.False(t, c.IsHealthy())
				assert.Equal(t, int32(5), c.Failures())
			},
		},
		{
			name: "reconnection after disconnect",
			setup: func(c *Client) {
				c.setStatus(StatusConnected)
			},
			action: func(c *Client) {
				c.setStatus(StatusReconnecting)
				time.Sleep(10 * time.Millisecond)
				c.setStatus(StatusConnected)
				c.resetCircuit()
			},
			validate: func(t *testing.T, c *Client) {
				assert.Equal(t, StatusConnected, c.Status())
				assert.True(t, c.IsHealthy())
			},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			client, err := NewClient([]string{"nats://localhost:4222"})
			assert.NoError(t, err)

			scenario.setup(client)
			scenario.action(client)
			scenario.validate(t, client)
		})
	}
}
