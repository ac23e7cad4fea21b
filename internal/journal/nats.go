package journal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/pkg/logger"
	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

const (
	// StreamName is the name of the turn journal stream.
	StreamName = "TURNS"

	// SubjectPrefix is the prefix for all journal subjects.
	SubjectPrefix = "turns"
)

// Config holds NATS connection configuration.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// NATS publishes turn events to a JetStream stream.
type NATS struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect establishes a connection and ensures the journal stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	j := &NATS{conn: nc, js: js, logger: log}
	if err := j.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return j, nil
}

func (j *NATS) ensureStream(ctx context.Context) error {
	if _, err := j.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := j.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat turn outcome journal",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// subject returns the journal subject for an event.
func subject(event TurnEvent) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, event.UserID, event.ConversationID, event.Status)
}

// Record publishes a turn event. Failures are logged, never propagated.
func (j *NATS) Record(ctx context.Context, event TurnEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		j.logger.Warn("failed to marshal journal event", zap.Error(err))
		return
	}

	if _, err := j.js.Publish(ctx, subject(event), data); err != nil {
		j.logger.Warn("failed to publish journal event",
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err),
		)
		return
	}

	metrics.JournalPublishesTotal.WithLabelValues(string(event.Status)).Inc()
}

// Connected reports whether the NATS connection is up.
func (j *NATS) Connected() bool {
	return j.conn != nil && j.conn.IsConnected()
}

// Close closes the NATS connection.
func (j *NATS) Close() {
	if j.conn != nil {
		j.conn.Close()
	}
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
