package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	skafka "github.com/radieske/casino-platform-poc/internal/shared/kafka"
	"github.com/radieske/casino-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de auditoria do casino: depósitos,
// saques, apostas colocadas e resolvidas. São esses eventos que permitem
// reconstruir o histórico sem ler o storage interno.
type KafkaPublisher struct {
	depositW    *kafkago.Writer
	withdrawalW *kafkago.Writer
	placedW     *kafkago.Writer
	resolvedW   *kafkago.Writer
}

func NewKafkaPublisher(brokers, topicDeposit, topicWithdrawal, topicPlaced, topicResolved string) *KafkaPublisher {
	return &KafkaPublisher{
		depositW:    skafka.NewWriter(brokers, topicDeposit),
		withdrawalW: skafka.NewWriter(brokers, topicWithdrawal),
		placedW:     skafka.NewWriter(brokers, topicPlaced),
		resolvedW:   skafka.NewWriter(brokers, topicResolved),
	}
}

func (p *KafkaPublisher) Close() {
	_ = p.depositW.Close()
	_ = p.withdrawalW.Close()
	_ = p.placedW.Close()
	_ = p.resolvedW.Close()
}

func (p *KafkaPublisher) PublishDepositMade(ctx context.Context, e events.DepositMade) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.depositW, e.PlayerID, b)
}

func (p *KafkaPublisher) PublishWithdrawalMade(ctx context.Context, e events.WithdrawalMade) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.withdrawalW, e.PlayerID, b)
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.placedW, strconv.FormatUint(e.RequestID, 10), b)
}

func (p *KafkaPublisher) PublishBetResolved(ctx context.Context, e events.BetResolved) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return skafka.WriteJSON(ctx, p.resolvedW, strconv.FormatUint(e.RequestID, 10), b)
}
