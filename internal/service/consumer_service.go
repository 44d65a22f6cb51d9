package service

import (
	"context"
	"encoding/json"

	"doc-review-be/internal/dto"
	"doc-review-be/internal/entity"
	"doc-review-be/internal/pkg/logger"
	"doc-review-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService archives completed check groups.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.CheckGroupCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		cs.logger.Error("ConsumerService", "Failed to begin transaction", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	report := &entity.ReviewReport{
		SessionId:  payload.SessionId,
		GroupId:    payload.GroupId,
		Statuses:   payload.Statuses,
		Summary:    payload.Summary,
		Documents:  payload.Documents,
		TokenTotal: payload.TokenTotal,
		CostTotal:  payload.CostTotal,
		CreatedAt:  payload.CompletedAt,
	}
	if err := uow.ReviewReportRepository().Create(ctx, report); err != nil {
		_ = uow.Rollback()
		cs.logger.Error("ConsumerService", "Failed to archive report", map[string]interface{}{
			"session_id": payload.SessionId,
			"group":      payload.GroupId,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}
	if err := uow.Commit(); err != nil {
		cs.logger.Error("ConsumerService", "Failed to commit report", map[string]interface{}{"error": err.Error()})
		msg.Nack()
		return
	}

	cs.logger.Info("ConsumerService", "Report archived", map[string]interface{}{
		"session_id": payload.SessionId,
		"group":      payload.GroupId,
		"report_id":  report.Id.String(),
	})
	msg.Ack()
}
