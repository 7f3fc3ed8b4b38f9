package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/importer"
)

// ImportRunner runs a validated import document through the pipeline.
type ImportRunner interface {
	Import(doc *importer.Document, opts importer.Options) (*importer.Summary, error)
}

type ImportController struct {
	runner       ImportRunner
	auditor      *audit.Auditor
	auditService *audit.Service
}

func NewImportController(runner ImportRunner, auditor *audit.Auditor, auditService *audit.Service) *ImportController {
	return &ImportController{runner: runner, auditor: auditor, auditService: auditService}
}

type importResponse struct {
	Summary   *importer.Summary `json:"summary"`
	AuditFile string            `json:"audit_file,omitempty"`
}

// Import accepts a structured import document and materializes it.
// Validation errors return 400 before any write. Storage failures roll
// back the whole run and return 500.
// POST /api/import/json
func (ic *ImportController) Import(c *gin.Context) {
	var doc importer.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondBadRequest(c, "invalid import document: "+err.Error())
		return
	}

	includeContainers, _ := strconv.ParseBool(c.Query("include_containers"))

	var auditFile string
	if ic.auditor != nil {
		name, err := ic.auditor.SaveJSON(doc)
		if err == nil {
			auditFile = name
		}
	}

	summary, err := ic.runner.Import(&doc, importer.Options{IncludeContainers: includeContainers})
	if err != nil {
		var validationErr *importer.ValidationError
		if errors.As(err, &validationErr) {
			respondBadRequest(c, validationErr.Error())
			return
		}
		if ic.auditService != nil {
			ic.auditService.LogImport("Import of "+doc.Source.ExternalID+" failed", 0, 0, err)
		}
		respondInternalError(c, err, "import json")
		return
	}

	if ic.auditService != nil {
		description := fmt.Sprintf("Imported %s: %d exercises, %d tags, %d warnings",
			doc.Source.ExternalID, summary.Exercises, summary.Tags, len(summary.Warnings))
		ic.auditService.LogImport(description, summary.Exercises, summary.Tags, nil)
	}

	c.JSON(http.StatusOK, importResponse{
		Summary:   summary,
		AuditFile: auditFile,
	})
}
