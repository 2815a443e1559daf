// Package kafka connects to the broker that receives account events.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/echolearn/echolearn-backend/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

const (
	dialTimeout    = 10 * time.Second
	connectRetries = 3
	batchTimeout   = 50 * time.Millisecond
)

// mechanism returns SASL/PLAIN when credentials are configured
func mechanism(cfg config.KafkaConfig) sasl.Mechanism {
	if cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	return plain.Mechanism{
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// NewDialer builds the dialer used for the connectivity check. Hosted
// brokers that take SASL credentials also require TLS.
func NewDialer(cfg config.KafkaConfig) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
	}
	if m := mechanism(cfg); m != nil {
		dialer.SASLMechanism = m
		dialer.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return dialer
}

// NewTransport builds the writer transport with the same credentials as NewDialer
func NewTransport(cfg config.KafkaConfig) *kafka.Transport {
	transport := &kafka.Transport{DialTimeout: dialTimeout}
	if m := mechanism(cfg); m != nil {
		transport.SASL = m
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return transport
}

// NewWriter checks that the first broker is reachable and returns an async
// writer for the account events topic. Delivery failures are logged.
func NewWriter(ctx context.Context, cfg config.KafkaConfig, logger *zap.Logger) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	dialer := NewDialer(cfg)
	attempt := 0
	check := func() error {
		attempt++
		logger.Info("Kafka connection attempt", zap.Int("attempt", attempt), zap.String("broker", cfg.Brokers[0]))
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), connectRetries-1),
		ctx,
	)
	if err := backoff.Retry(check, policy); err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Transport:              NewTransport(cfg),
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to deliver account events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}, nil
}
