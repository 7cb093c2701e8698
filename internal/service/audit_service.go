package service

import (
	"context"
	"encoding/json"

	"taxcalc/internal/events"
	"taxcalc/internal/model"
	"taxcalc/internal/repository"
	"taxcalc/pkg/pagination"

	"github.com/rs/zerolog"
)

// SystemActor is recorded when a request carries no actor id.
const SystemActor = "system"

type AuditLogResponse struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs lists entries newest first, optionally filtered by action
func (s *auditService) GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	p := pagination.Clamp(page, limit)
	logs, total, err := s.repo.List(ctx, action, p.Page, p.Limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			Actor:      l.Actor,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// changeRecorder writes audit entries and publishes change events for the
// configuration services. Both are best effort: the write already happened.
type changeRecorder struct {
	audit     repository.AuditRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

func newChangeRecorder(audit repository.AuditRepository, publisher events.Publisher, logger zerolog.Logger) changeRecorder {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return changeRecorder{audit: audit, publisher: publisher, logger: logger}
}

func (r changeRecorder) writeAuditLog(ctx context.Context, actor, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)
	if actor == "" {
		actor = SystemActor
	}

	entry := model.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}

	if err := r.audit.Log(ctx, &entry); err != nil {
		r.logger.Warn().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit log write failed")
	}
}

func (r changeRecorder) publish(ctx context.Context, eventType events.EventType, entityID string, payload any) {
	evt, err := events.NewEvent(ctx, eventType, entityID, payload)
	if err == nil {
		err = r.publisher.Publish(ctx, evt)
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("event_type", string(eventType)).Str("entity_id", entityID).Msg("event publish failed")
	}
}

func (r changeRecorder) configChanged(ctx context.Context, entity, action, key string) {
	r.publish(ctx, events.EventTypeConfigUpdated, key, events.ConfigChange{
		Entity:          entity,
		Action:          action,
		JurisdictionKey: key,
	})
}
