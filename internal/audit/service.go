package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/database/audit"
	"github.com/exambank/exambank/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogImport records an import run with its per-table counts.
func (s *Service) LogImport(description string, exercisesCount, tagsCount int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      "json_import",
		Description: description,
		EntityType:  "source",
		Status:      entities.AuditStatusSuccess,
	}

	metadata := map[string]any{
		"exercises_count": exercisesCount,
		"tags_count":      tagsCount,
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogUpload records a source document upload.
func (s *Service) LogUpload(sourceID uuid.UUID, fileName string, pageCount int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventUpload,
		Action:      "source_upload",
		Description: fmt.Sprintf("Uploaded %s (%d pages)", fileName, pageCount),
		EntityType:  "source",
		EntityID:    &sourceID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogDelete records a deletion event.
func (s *Service) LogDelete(entityType string, entityID uuid.UUID, entityName string) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: "Deleted " + entityType + ": " + entityName,
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogTask records a background task run.
func (s *Service) LogTask(action, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventTask,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
