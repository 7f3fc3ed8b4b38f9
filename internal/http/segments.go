package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/entities"
)

// SegmentStore defines database operations for segment retrieval and
// manual segment creation.
type SegmentStore interface {
	GetSegmentByID(id uuid.UUID) (*entities.SourceSegment, error)
	GetSegmentsBySource(sourceID uuid.UUID) ([]entities.SourceSegment, error)
	CreateSegment(segment *entities.SourceSegment) error
}

type SegmentsController struct {
	store SegmentStore
}

func NewSegmentsController(store SegmentStore) *SegmentsController {
	return &SegmentsController{store: store}
}

// GetSegment returns a single segment
// GET /api/segments/:id
func (sc *SegmentsController) GetSegment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	segment, err := sc.store.GetSegmentByID(id)
	if err != nil {
		respondNotFound(c, "segment")
		return
	}
	c.JSON(http.StatusOK, segment)
}

// GetSourceSegments returns the segments of a source, ordered by page
// GET /api/sources/:id/segments
func (sc *SegmentsController) GetSourceSegments(c *gin.Context) {
	sourceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	segments, err := sc.store.GetSegmentsBySource(sourceID)
	if err != nil {
		respondInternalError(c, err, "get source segments")
		return
	}
	c.JSON(http.StatusOK, segments)
}

// ListSegments returns the segments of the source given as a query param
// GET /api/segments?source_id=
func (sc *SegmentsController) ListSegments(c *gin.Context) {
	raw := c.Query("source_id")
	if raw == "" {
		respondBadRequest(c, "source_id query parameter is required")
		return
	}
	sourceID, err := uuid.Parse(raw)
	if err != nil {
		respondBadRequest(c, "invalid source_id")
		return
	}

	segments, err := sc.store.GetSegmentsBySource(sourceID)
	if err != nil {
		respondInternalError(c, err, "list segments")
		return
	}
	c.JSON(http.StatusOK, segments)
}

type createSegmentRequest struct {
	SourceID         uuid.UUID                 `json:"source_id" binding:"required"`
	PageStart        int                       `json:"page_start" binding:"required,min=1"`
	PageEnd          int                       `json:"page_end" binding:"required,min=1"`
	RawExtraction    string                    `json:"raw_extraction"`
	Checksum         string                    `json:"checksum"`
	Status           entities.SegmentStatus    `json:"status"`
	ExtractionMethod entities.ExtractionMethod `json:"extraction_method"`
}

// CreateSegment inserts a manually extracted segment for a source
// POST /api/segments
func (sc *SegmentsController) CreateSegment(c *gin.Context) {
	var req createSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid segment: "+err.Error())
		return
	}
	if req.PageEnd < req.PageStart {
		respondBadRequest(c, "page_end must not be before page_start")
		return
	}
	if req.Status == "" {
		req.Status = entities.SegmentStatusExtracted
	}
	if req.ExtractionMethod == "" {
		req.ExtractionMethod = entities.ExtractionMethodManual
	}

	segment := &entities.SourceSegment{
		SourceID:         req.SourceID,
		PageStart:        req.PageStart,
		PageEnd:          req.PageEnd,
		RawExtraction:    req.RawExtraction,
		Checksum:         req.Checksum,
		Status:           req.Status,
		ExtractionMethod: req.ExtractionMethod,
	}
	if err := sc.store.CreateSegment(segment); err != nil {
		respondInternalError(c, err, "create segment")
		return
	}
	c.JSON(http.StatusCreated, segment)
}
