package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"requests-service/internal/models"
)

// Event subjects published on the REQUESTS stream
const (
	StreamRequests = "REQUESTS"

	SubjectRequestCreated   = "request.created"
	SubjectRequestSubmitted = "request.submitted"
	SubjectRequestApproved  = "request.approved"
	SubjectRequestRejected  = "request.rejected"
	SubjectRequestStarted   = "request.started"
	SubjectRequestCompleted = "request.completed"
	SubjectRequestCancelled = "request.cancelled"
	SubjectRequestCommented = "request.commented"
)

// RequestEvent is the envelope published for every lifecycle change
type RequestEvent struct {
	EventID        string `json:"eventId"`
	EventType      string `json:"eventType"`
	TenantID       string `json:"tenantId"`
	RequestID      string `json:"requestId"`
	RequestNumber  string `json:"requestNumber"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	ActorID        string `json:"actorId"`
	ActorRole      string `json:"actorRole,omitempty"`
	TechnicianID   string `json:"technicianId,omitempty"`
	ScheduledDate  string `json:"scheduledDate,omitempty"`
	Comment        string `json:"comment,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Publisher publishes request lifecycle events to NATS JetStream.
// A nil Publisher is safe to call; every method becomes a no-op, so the
// service runs unchanged with eventing disabled.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and initializes the JetStream context
func NewPublisher(url, name string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: logger.WithField("component", "events"),
	}, nil
}

// EnsureStream creates the request stream if it does not exist yet
func (p *Publisher) EnsureStream(ctx context.Context) error {
	if p == nil {
		return nil
	}

	_, err := p.js.StreamInfo(StreamRequests, nats.Context(ctx))
	if err == nil {
		return nil
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     StreamRequests,
		Subjects: []string{"request.>"},
		Storage:  nats.FileStorage,
	}, nats.Context(ctx))
	return err
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}

// Publish builds the envelope and publishes it asynchronously. The HTTP
// request context may already be done by the time the publish runs, so a
// detached timeout context is used instead.
func (p *Publisher) Publish(subject string, request *models.Request, previousStatus models.RequestStatus, actorID uuid.UUID, actorRole, comment string) {
	if p == nil {
		return
	}

	event := RequestEvent{
		EventID:       uuid.New().String(),
		EventType:     subject,
		TenantID:      request.TenantID,
		RequestID:     request.ID.String(),
		RequestNumber: request.RequestNumber,
		Status:        string(request.Status),
		ActorID:       actorID.String(),
		ActorRole:     actorRole,
		Comment:       comment,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if previousStatus != "" {
		event.PreviousStatus = string(previousStatus)
	}
	if request.AssignedTechnicianID != nil {
		event.TechnicianID = request.AssignedTechnicianID.String()
	}
	if request.ScheduledDate != nil {
		event.ScheduledDate = request.ScheduledDate.Format(time.RFC3339)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal request event")
			return
		}

		if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
			p.logger.WithFields(logrus.Fields{
				"subject":   subject,
				"requestID": event.RequestID,
				"tenantID":  event.TenantID,
			}).WithError(err).Error("Failed to publish request event")
		}
	}()
}
