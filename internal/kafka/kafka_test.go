package kafka

import (
	"context"
	"net"
	"testing"

	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDialerAndTransportCredentials(t *testing.T) {
	local := config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "account-events"}
	dialer := NewDialer(local)
	assert.Nil(t, dialer.SASLMechanism)
	assert.Nil(t, dialer.TLS)
	assert.Nil(t, NewTransport(local).SASL)

	hosted := local
	hosted.Username, hosted.Password = "key", "secret"
	dialer = NewDialer(hosted)
	assert.Equal(t, plain.Mechanism{Username: "key", Password: "secret"}, dialer.SASLMechanism)
	require.NotNil(t, dialer.TLS)

	transport := NewTransport(hosted)
	assert.Equal(t, plain.Mechanism{Username: "key", Password: "secret"}, transport.SASL)
	assert.NotNil(t, transport.TLS)
}

func TestNewWriterRequiresBrokers(t *testing.T) {
	_, err := NewWriter(context.Background(), config.KafkaConfig{Topic: "account-events"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "no kafka brokers")
}

func TestNewWriterUnreachableBroker(t *testing.T) {
	// grab a free port and release it so nothing is listening there
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewWriter(ctx, config.KafkaConfig{Brokers: []string{addr}, Topic: "account-events"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "connecting to kafka")
}
