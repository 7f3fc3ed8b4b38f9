package http

import (
	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/database"
	"github.com/exambank/exambank/internal/generator"
	"github.com/exambank/exambank/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	ImportRunner ImportRunner
	Auditor      *audit.Auditor
	AuditService *audit.Service

	// Stores (implemented by the gorm repositories)
	SourceStore   SourceStore
	SegmentStore  SegmentStore
	ExerciseStore ExerciseStore
	TagStore      TagStore
	VariantStore  VariantStore

	// Variant generation
	Generator *generator.Generator

	// Uploaded exam documents directory
	UploadDir string

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
