// Package events publica os eventos de reconciliação num tópico Kafka, em
// JSON, com a chave de partição (source, product_id) para manter a ordem
// por produto.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"catalogo-precos/internal/ingest"
)

// Producer implementa ingest.EventSink sobre um produtor síncrono Kafka.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// New conecta aos brokers. Lista vazia desliga a publicação e retorna nil
// sem erro.
func New(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("conectar ao kafka: %w", err)
	}
	return &Producer{producer: p, topic: topic}, nil
}

// Publish serializa o evento e o envia com chave source|product_id.
func (p *Producer) Publish(_ context.Context, ev ingest.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Source + "|" + ev.ProductID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("enviar evento: %w", err)
	}
	return nil
}

// Close encerra o produtor.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
