package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	w      *kafka.Writer
	inbox  chan kafka.Message
	closed chan struct{}
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		inbox:  make(chan kafka.Message, buf),
		closed: make(chan struct{}),
		log:    log.With(zap.String("topic", topic)),
	}
}

// Start runs the write loop until ctx is cancelled, then flushes what is left
// in the inbox and closes the writer.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closed)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Warn("close kafka writer", zap.Error(err))
			}
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("publish failed", zap.ByteString("key", m.Key), zap.Error(err))
	}
}

// Publish enqueues without blocking. When the inbox is full the message is
// dropped and logged so a slow broker never stalls a request.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
	default:
		p.log.Warn("producer inbox full, dropping message", zap.ByteString("key", key))
	}
}

// WaitClosed blocks until the loop started by Start has flushed and exited.
func (p *Producer) WaitClosed() { <-p.closed }
