//go:build integration

package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS:          1,
		CleanSession: true,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		Topics: config.MQTTTopicsConfig{Prefix: "telemetrycore-int"},
	}
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig("tc-int-connect"))
	require.NoError(t, err)

	assert.True(t, client.IsConnected())
	assert.NoError(t, client.HealthCheck(t.Context()))

	require.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig("tc-int-refused")
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("tc-int-sub-track"))
	require.NoError(t, err)
	defer client.Close()

	topics := []string{"tc/int/topic1", "tc/int/topic2", "tc/int/topic3"}
	handler := func(string, []byte) error { return nil }

	for _, topic := range topics {
		require.NoError(t, client.Subscribe(topic, 1, handler))
	}
	assert.Equal(t, len(topics), client.SubscriptionCount())

	require.NoError(t, client.Unsubscribe(topics[0]))
	assert.Equal(t, len(topics)-1, client.SubscriptionCount())
	assert.False(t, client.HasSubscription(topics[0]))
}

func TestIntegration_ManualAckRoundtrip(t *testing.T) {
	pub, err := Connect(integrationConfig("tc-int-pub"))
	require.NoError(t, err)
	defer pub.Close()

	sub, err := Connect(integrationConfig("tc-int-sub"))
	require.NoError(t, err)
	defer sub.Close()

	type delivery struct {
		payload string
		ack     func()
	}
	received := make(chan delivery, 4)

	topic := "tc/int/manual"
	require.NoError(t, sub.SubscribeManual(topic, 1, func(_ string, p []byte, ack func()) {
		received <- delivery{payload: string(p), ack: ack}
	}))

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, pub.Publish(topic, []byte("hello"), 1, false))

	select {
	case d := <-received:
		assert.Equal(t, "hello", d.payload)
		d.ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
