package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
	"github.com/ionutmarisca/School-Timetable-AI/internal/ga"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel 是 *amqp.Channel 中发布消息的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 将报告发布到 RabbitMQ 队列中，由 mail worker 消费
type Publisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
	runID   string
	logger  *slog.Logger
}

func NewPublisher(ch Channel, queue string, timeout time.Duration, runID string, logger *slog.Logger) *Publisher {
	return &Publisher{
		ch:      ch,
		queue:   queue,
		timeout: timeout,
		runID:   runID,
		logger:  logger,
	}
}

// OnGeneration 发布失败只记录日志，不影响求解
func (p *Publisher) OnGeneration(ctx context.Context, stats ga.GenerationStats) {
	msg := domain.ReportMessage{
		Type: domain.ReportTypeGeneration,
		Data: NewGenerationReport(p.runID, stats),
	}
	if err := p.publish(ctx, msg); err != nil {
		p.logger.Error("无法发布本代报告", "generation", stats.Generation, "error", err)
	}
}

func (p *Publisher) PublishFinal(ctx context.Context, report *domain.FinalReport) error {
	return p.publish(ctx, domain.ReportMessage{
		Type: domain.ReportTypeFinal,
		Data: report,
	})
}

func (p *Publisher) publish(ctx context.Context, msg domain.ReportMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
