package sender

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"

	"hostwatch/internal/config"
	"hostwatch/internal/logger"
	"hostwatch/internal/network"
)

// SCRAM hash generators.
var (
	SHA256 scram.HashGeneratorFcn = sha256.New
	SHA512 scram.HashGeneratorFcn = sha512.New
)

// XDGSCRAMClient adapts xdg-go/scram to sarama.SCRAMClient.
type XDGSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	HashGeneratorFcn scram.HashGeneratorFcn
}

// Begin starts a conversation for the given credentials.
func (x *XDGSCRAMClient) Begin(userName, password, authzID string) error {
	client, err := x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.Client = client
	x.ClientConversation = client.NewConversation()
	return nil
}

// Step answers one server challenge.
func (x *XDGSCRAMClient) Step(challenge string) (string, error) {
	return x.ClientConversation.Step(challenge)
}

// Done reports whether the conversation has completed.
func (x *XDGSCRAMClient) Done() bool {
	return x.ClientConversation.Done()
}

// KafkaSender publishes each message as a JSON record keyed by hostname.
// The producer is synchronous so a failed publish fails the cycle.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
	mu       sync.RWMutex
	closed   bool
}

// NewKafkaSender creates a new Kafka sender with the given configuration.
func NewKafkaSender(cfg config.KafkaConfig, socksCfg config.SOCKSConfig) (*KafkaSender, error) {
	saramaConfig, err := newSaramaConfig(cfg, socksCfg)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log := logger.WithComponent("kafka-sender")
	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("KafkaSender initialized")

	return newKafkaSenderWithProducer(producer, cfg.Topic), nil
}

func newKafkaSenderWithProducer(producer sarama.SyncProducer, topic string) *KafkaSender {
	return &KafkaSender{producer: producer, topic: topic}
}

var compressionCodecs = map[string]sarama.CompressionCodec{
	"none":   sarama.CompressionNone,
	"gzip":   sarama.CompressionGZIP,
	"snappy": sarama.CompressionSnappy,
	"lz4":    sarama.CompressionLZ4,
	"zstd":   sarama.CompressionZSTD,
}

type saslMechanism struct {
	name sarama.SASLMechanism
	hash scram.HashGeneratorFcn // nil for PLAIN
}

var saslMechanisms = map[string]saslMechanism{
	"PLAIN":         {name: sarama.SASLTypePlaintext},
	"SCRAM-SHA-256": {name: sarama.SASLTypeSCRAMSHA256, hash: SHA256},
	"SCRAM-SHA-512": {name: sarama.SASLTypeSCRAMSHA512, hash: SHA512},
}

// newSaramaConfig maps the sink settings onto a sync producer config.
// Unknown compression names fall back to snappy; acks are 0, 1 or -1.
func newSaramaConfig(cfg config.KafkaConfig, socksCfg config.SOCKSConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "hostwatch"
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	codec, ok := compressionCodecs[strings.ToLower(cfg.Compression)]
	if !ok {
		codec = sarama.CompressionSnappy
	}
	sc.Producer.Compression = codec

	switch cfg.RequiredAcks {
	case 0:
		sc.Producer.RequiredAcks = sarama.NoResponse
	case -1:
		sc.Producer.RequiredAcks = sarama.WaitForAll
	default:
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	}

	if t := cfg.Timeout; t > 0 {
		sc.Net.DialTimeout, sc.Net.ReadTimeout, sc.Net.WriteTimeout = t, t, t
		sc.Producer.Timeout = t
	}

	if cfg.EnableTLS {
		tlsConfig, err := loadTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = tlsConfig
	}

	if cfg.SASLMechanism != "" {
		mech, ok := saslMechanisms[strings.ToUpper(cfg.SASLMechanism)]
		if !ok {
			return nil, fmt.Errorf("unsupported SASL mechanism %q (supported: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512)", cfg.SASLMechanism)
		}
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User = cfg.SASLUser
		sc.Net.SASL.Password = cfg.SASLPassword
		sc.Net.SASL.Mechanism = mech.name
		if hashFn := mech.hash; hashFn != nil {
			sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &XDGSCRAMClient{HashGeneratorFcn: hashFn}
			}
		}
	}

	socksDialer, err := network.NewSOCKS5Dialer(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Kafka: %w", err)
	}
	if socksDialer != nil {
		sc.Net.Proxy.Enable = true
		sc.Net.Proxy.Dialer = socksDialer
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Kafka configuration: %w", err)
	}
	return sc, nil
}

// Name returns "kafka".
func (s *KafkaSender) Name() string { return config.SinkKafka }

// Send publishes the message and waits for the broker acknowledgement.
func (s *KafkaSender) Send(ctx context.Context, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	record := &sarama.ProducerMessage{
		Topic:     s.topic,
		Key:       sarama.StringEncoder(msg.Hostname),
		Value:     sarama.ByteEncoder(value),
		Timestamp: msg.Timestamp,
		Headers: []sarama.RecordHeader{
			{Key: []byte("id"), Value: []byte(msg.ID.String())},
			{Key: []byte("kind"), Value: []byte(msg.Kind)},
		},
	}

	partition, offset, err := s.producer.SendMessage(record)
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log := logger.WithComponent("kafka-sender")
	log.Debug().
		Str("topic", s.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Message published")
	return nil
}

// Close closes the Kafka producer.
func (s *KafkaSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.producer.Close()
}

// loadTLSConfig builds a client TLS config. The client certificate is
// optional; an empty caFile keeps the system roots.
func loadTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}

	switch {
	case certFile != "" && keyFile != "":
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	case certFile != "" || keyFile != "":
		return nil, fmt.Errorf("client certificate and key must be set together")
	}

	if caFile == "" {
		return tc, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	tc.RootCAs = pool
	return tc, nil
}
