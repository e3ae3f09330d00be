package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/thep200/github-frontier/cfg"
	"github.com/thep200/github-frontier/internal/model"
	"github.com/thep200/github-frontier/pkg/log"
)

var ErrNoBrokers = errors.New("kafka: no brokers configured")

// messageWriter is the part of kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes promoted repositories to the repo topic.
type Producer struct {
	Config *cfg.Config
	Logger log.Logger
	writer messageWriter
	topic  string
}

// NewProducer returns ErrNoBrokers when Kafka is not configured, the crawler
// then runs without an event stream.
func NewProducer(config *cfg.Config, logger log.Logger) (*Producer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	topic := config.Kafka.TopicRepo
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Kafka.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Config: config, Logger: logger, writer: writer, topic: topic}, nil
}

// Publish sends value as JSON under key.
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonBytes,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// PublishRepo keys the message by full name so updates of one repository
// land on one partition.
func (p *Producer) PublishRepo(ctx context.Context, msg model.RepoMessage) error {
	return p.Publish(ctx, msg.Owner+"/"+msg.Name, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
