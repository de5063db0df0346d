package notifybidder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "tender-workers/internal/common/errors"
	"tender-workers/internal/common/logger"
	"tender-workers/internal/common/validation"
	"tender-workers/internal/models"
	"tender-workers/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-bidder"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrDatabaseQueryFailed    = errors.New("DATABASE_QUERY_FAILED")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type ContactStore interface {
	ContractorContact(ctx context.Context, contractorID string) (*models.ContractorContact, error)
	Tender(ctx context.Context, tenderID string) (*models.Tender, error)
	RecordNotification(ctx context.Context, n models.Notification)
}

type Handler struct {
	config    *Config
	store     ContactStore
	sesClient SESService
	snsClient SNSService
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(config *Config, store ContactStore, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		sesClient: sesClient,
		snsClient: snsClient,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Handle(jobCtx context.Context, client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job, err)
	}

	ctx, cancel := context.WithTimeout(jobCtx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		return h.errors.HandleJobError(jobCtx, client, job,
			apperrors.Classify(err, ErrNotificationSendFailed, ErrDatabaseQueryFailed))
	}

	return h.completeJob(client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse variables: %v", err))
	}
	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		return nil, apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	tmpl, ok := templates[input.NotificationType]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown notification type %q", input.NotificationType))
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		Channels:       []string{},
		SentAt:         h.now().Format(time.RFC3339),
	}

	contact, err := h.store.ContractorContact(ctx, input.ContractorID)
	if errors.Is(err, repository.ErrContractorNotFound) {
		h.logger.Warn("contractor not found", map[string]interface{}{
			"contractorId": input.ContractorID,
		})
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseQueryFailed, err)
	}

	data := h.templateData(ctx, input, contact)
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)

	if h.config.EmailEnabled && contact.Email != "" {
		if err := h.sendEmail(ctx, contact.Email, subject, body); err != nil {
			out.Status = StatusFailed
			h.record(ctx, out, input, ChannelEmail, subject)
			return nil, fmt.Errorf("%w: email to contractor %s: %w", ErrNotificationSendFailed, input.ContractorID, err)
		}
		out.Channels = append(out.Channels, ChannelEmail)
	}

	// texts only go out for awards; a failed text does not undo the email
	if h.config.SMSEnabled && contact.Phone != "" && input.NotificationType == TypeBidAwarded {
		if err := h.sendSMS(ctx, contact.Phone, body); err != nil {
			h.logger.Warn("SMS send failed", map[string]interface{}{
				"contractorId": input.ContractorID,
				"error":        err,
			})
		} else {
			out.Channels = append(out.Channels, ChannelSMS)
		}
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}
	for _, ch := range out.Channels {
		h.record(ctx, out, input, ch, subject)
	}

	h.logger.Info("bidder notified", map[string]interface{}{
		"contractorId":     input.ContractorID,
		"notificationType": input.NotificationType,
		"status":           out.Status,
		"channels":         out.Channels,
	})
	return out, nil
}

func (h *Handler) templateData(ctx context.Context, input *Input, contact *models.ContractorContact) map[string]interface{} {
	title := input.TenderTitle
	if title == "" && input.TenderID != "" {
		tender, err := h.store.Tender(ctx, input.TenderID)
		if err != nil {
			h.logger.Warn("tender title lookup failed", map[string]interface{}{
				"tenderId": input.TenderID,
				"error":    err,
			})
		} else {
			title = tender.Title
		}
	}

	data := map[string]interface{}{
		"bidId":          input.BidID,
		"contractorId":   input.ContractorID,
		"contractorName": contact.Name,
		"tenderId":       input.TenderID,
		"tenderTitle":    title,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}
	return data
}

func (h *Handler) record(ctx context.Context, out *Output, input *Input, channel, subject string) {
	h.store.RecordNotification(ctx, models.Notification{
		ID:           out.NotificationID,
		ContractorID: input.ContractorID,
		BidID:        input.BidID,
		Type:         input.NotificationType,
		Channel:      channel,
		Status:       out.Status,
		Payload:      map[string]interface{}{"subject": subject, "tenderId": input.TenderID},
		SentAt:       out.SentAt,
	})
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
