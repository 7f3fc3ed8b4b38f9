package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/entities"
	"github.com/exambank/exambank/internal/pdfinfo"
)

// SourceStore defines database operations for source management.
type SourceStore interface {
	CreateSource(source *entities.Source) error
	GetSourceByID(id uuid.UUID) (*entities.Source, error)
	GetAllSources() ([]entities.Source, error)
	UpdateSource(source *entities.Source) error
	DeleteSource(id uuid.UUID) error
	CreateSegment(segment *entities.SourceSegment) error
}

type SourcesController struct {
	store        SourceStore
	auditService *audit.Service
	uploadDir    string
}

func NewSourcesController(store SourceStore, auditService *audit.Service, uploadDir string) *SourcesController {
	return &SourcesController{store: store, auditService: auditService, uploadDir: uploadDir}
}

type sourceCreateRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type"`
	Year    *int   `json:"year"`
	Session string `json:"session"`
}

type sourceUpdateRequest struct {
	Name    *string `json:"name"`
	Type    *string `json:"type"`
	Year    *int    `json:"year"`
	Session *string `json:"session"`
}

// GetAllSources returns all sources
// GET /api/sources
func (sc *SourcesController) GetAllSources(c *gin.Context) {
	sources, err := sc.store.GetAllSources()
	if err != nil {
		respondInternalError(c, err, "get all sources")
		return
	}
	c.JSON(http.StatusOK, sources)
}

// GetSource returns a source with its segments
// GET /api/sources/:id
func (sc *SourcesController) GetSource(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	source, err := sc.store.GetSourceByID(id)
	if err != nil {
		respondNotFound(c, "source")
		return
	}
	c.JSON(http.StatusOK, source)
}

// CreateSource creates a source without an uploaded document
// POST /api/sources
func (sc *SourcesController) CreateSource(c *gin.Context) {
	var req sourceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	source := &entities.Source{
		Name:    req.Name,
		Type:    sourceTypeOrDefault(req.Type),
		Year:    req.Year,
		Session: req.Session,
	}
	if err := sc.store.CreateSource(source); err != nil {
		respondInternalError(c, err, "create source")
		return
	}

	respondCreated(c, source)
}

// UpdateSource updates the mutable fields of a source
// PUT /api/sources/:id
func (sc *SourcesController) UpdateSource(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	source, err := sc.store.GetSourceByID(id)
	if err != nil {
		respondNotFound(c, "source")
		return
	}

	var req sourceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.Name != nil {
		source.Name = *req.Name
	}
	if req.Type != nil {
		source.Type = sourceTypeOrDefault(*req.Type)
	}
	if req.Year != nil {
		source.Year = req.Year
	}
	if req.Session != nil {
		source.Session = *req.Session
	}

	if err := sc.store.UpdateSource(source); err != nil {
		respondInternalError(c, err, "update source")
		return
	}
	c.JSON(http.StatusOK, source)
}

// DeleteSource removes a source and its segments
// DELETE /api/sources/:id
func (sc *SourcesController) DeleteSource(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	source, err := sc.store.GetSourceByID(id)
	if err != nil {
		respondNotFound(c, "source")
		return
	}

	if err := sc.store.DeleteSource(id); err != nil {
		respondInternalError(c, err, "delete source")
		return
	}

	if sc.auditService != nil {
		sc.auditService.LogDelete("source", id, source.Name)
	}

	c.Status(http.StatusNoContent)
}

// Upload stores an exam PDF, counts its pages and creates the source
// together with one segment per page.
// POST /api/sources/upload
func (sc *SourcesController) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	if err := os.MkdirAll(sc.uploadDir, 0755); err != nil {
		respondInternalError(c, err, "create upload dir")
		return
	}
	path := filepath.Join(sc.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		respondInternalError(c, err, "save uploaded file")
		return
	}

	pageCount, err := pdfinfo.PageCountFile(path)
	if err != nil {
		respondBadRequest(c, fmt.Sprintf("not a readable PDF: %v", err))
		return
	}

	notes, _ := json.Marshal(entities.SourceNotes{
		ExternalID: "upload-" + uuid.NewString(),
		PageCount:  pageCount,
		ImportedAt: time.Now().UTC().Format(time.RFC3339),
	})

	source := &entities.Source{
		Name:        name,
		Type:        sourceTypeOrDefault(c.PostForm("type")),
		Session:     c.PostForm("session"),
		URLFilePath: path,
		Notes:       notes,
	}
	if year, err := strconv.Atoi(c.PostForm("year")); err == nil && year > 0 {
		source.Year = &year
	}

	if err := sc.store.CreateSource(source); err != nil {
		respondInternalError(c, err, "create source")
		return
	}

	for page := 1; page <= pageCount; page++ {
		segment := &entities.SourceSegment{
			SourceID:         source.ID,
			PageStart:        page,
			PageEnd:          page,
			Status:           entities.SegmentStatusExtracted,
			ExtractionMethod: entities.ExtractionMethodManual,
		}
		if err := sc.store.CreateSegment(segment); err != nil {
			respondInternalError(c, err, "create segment")
			return
		}
	}

	if sc.auditService != nil {
		sc.auditService.LogUpload(source.ID, file.Filename, pageCount, nil)
	}

	respondCreated(c, gin.H{
		"source":     source,
		"page_count": pageCount,
	})
}

func sourceTypeOrDefault(value string) entities.SourceType {
	switch entities.SourceType(value) {
	case entities.SourceTypeOficial, entities.SourceTypeCulegere:
		return entities.SourceType(value)
	}
	return entities.SourceTypePDF
}
