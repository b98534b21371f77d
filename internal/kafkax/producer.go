package kafkax

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer buffers messages through an inbox channel so handlers never block
// on the broker. Close flushes the inbox before the writer shuts down.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop. The loop exits only when Close is called, so a
// cancelled context never drops buffered messages on the floor.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				log.Printf("kafka write topic=%s: %v", p.w.Topic, err)
			}
		}
		_ = p.w.Close()
	}()
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages; the loop flushes what is left and exits.
func (p *Producer) Close() { close(p.inbox) }

func (p *Producer) WaitClosed() { <-p.closeCh }
