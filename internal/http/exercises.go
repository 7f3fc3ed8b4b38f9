package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/entities"
)

// ExerciseStore defines database operations for exercise management.
type ExerciseStore interface {
	CreateExercise(exercise *entities.Exercise) error
	GetExerciseByID(id uuid.UUID) (*entities.Exercise, error)
	ListExercises(filter exercises.ListFilter) ([]entities.Exercise, int64, error)
	UpdateExercise(exercise *entities.Exercise) error
	DeleteExercise(id uuid.UUID) error
	GetSegmentLinks(exerciseID uuid.UUID) ([]entities.ExerciseSourceSegment, error)
}

type ExercisesController struct {
	store        ExerciseStore
	auditService *audit.Service
}

func NewExercisesController(store ExerciseStore, auditService *audit.Service) *ExercisesController {
	return &ExercisesController{store: store, auditService: auditService}
}

type exerciseCreateRequest struct {
	ExamType         string `json:"exam_type"`
	ItemType         string `json:"item_type"`
	Profile          string `json:"profile"`
	SubjectPart      string `json:"subject_part"`
	StatementLatex   string `json:"statement_latex" binding:"required"`
	StatementText    string `json:"statement_text"`
	AnswerLatex      string `json:"answer_latex"`
	SolutionLatex    string `json:"solution_latex"`
	Difficulty       int    `json:"difficulty"`
	EstimatedTimeSec int    `json:"estimated_time_sec"`
	Points           int    `json:"points"`
}

type exerciseUpdateRequest struct {
	ExamType         *string `json:"exam_type"`
	ItemType         *string `json:"item_type"`
	Profile          *string `json:"profile"`
	SubjectPart      *string `json:"subject_part"`
	StatementLatex   *string `json:"statement_latex"`
	StatementText    *string `json:"statement_text"`
	AnswerLatex      *string `json:"answer_latex"`
	SolutionLatex    *string `json:"solution_latex"`
	Difficulty       *int    `json:"difficulty"`
	EstimatedTimeSec *int    `json:"estimated_time_sec"`
	Points           *int    `json:"points"`
	Status           *string `json:"status"`
}

// ListExercises returns exercises matching the query filters
// GET /api/exercises
func (ec *ExercisesController) ListExercises(c *gin.Context) {
	limit, offset := parsePagination(c)

	filter := exercises.ListFilter{
		ExamType:      entities.ExamType(c.Query("exam_type")),
		ItemType:      entities.ItemType(c.Query("item_type")),
		Profile:       c.Query("profile"),
		Status:        entities.ExerciseStatus(c.Query("status")),
		MinDifficulty: parseQueryInt(c, "min_difficulty"),
		MaxDifficulty: parseQueryInt(c, "max_difficulty"),
		Limit:         limit,
		Offset:        offset,
	}
	if tagID, err := uuid.Parse(c.Query("tag_id")); err == nil {
		filter.TagID = tagID
	}

	items, total, err := ec.store.ListExercises(filter)
	if err != nil {
		respondInternalError(c, err, "list exercises")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	})
}

// GetExercise returns an exercise with its tags
// GET /api/exercises/:id
func (ec *ExercisesController) GetExercise(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	exercise, err := ec.store.GetExerciseByID(id)
	if err != nil {
		respondNotFound(c, "exercise")
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// CreateExercise creates a new exercise in DRAFT status
// POST /api/exercises
func (ec *ExercisesController) CreateExercise(c *gin.Context) {
	var req exerciseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "statement_latex is required")
		return
	}

	exercise := &entities.Exercise{
		ExamType:         entities.ExamType(req.ExamType),
		ItemType:         entities.ItemType(req.ItemType),
		Profile:          req.Profile,
		SubjectPart:      req.SubjectPart,
		StatementLatex:   req.StatementLatex,
		StatementText:    req.StatementText,
		AnswerLatex:      req.AnswerLatex,
		SolutionLatex:    req.SolutionLatex,
		Difficulty:       req.Difficulty,
		EstimatedTimeSec: req.EstimatedTimeSec,
		Points:           req.Points,
		Status:           entities.ExerciseStatusDraft,
	}
	if err := ec.store.CreateExercise(exercise); err != nil {
		respondInternalError(c, err, "create exercise")
		return
	}

	respondCreated(c, exercise)
}

// UpdateExercise updates the mutable fields of an exercise
// PUT /api/exercises/:id
func (ec *ExercisesController) UpdateExercise(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	exercise, err := ec.store.GetExerciseByID(id)
	if err != nil {
		respondNotFound(c, "exercise")
		return
	}

	var req exerciseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.ExamType != nil {
		exercise.ExamType = entities.ExamType(*req.ExamType)
	}
	if req.ItemType != nil {
		exercise.ItemType = entities.ItemType(*req.ItemType)
	}
	if req.Profile != nil {
		exercise.Profile = *req.Profile
	}
	if req.SubjectPart != nil {
		exercise.SubjectPart = *req.SubjectPart
	}
	if req.StatementLatex != nil {
		exercise.StatementLatex = *req.StatementLatex
	}
	if req.StatementText != nil {
		exercise.StatementText = *req.StatementText
	}
	if req.AnswerLatex != nil {
		exercise.AnswerLatex = *req.AnswerLatex
	}
	if req.SolutionLatex != nil {
		exercise.SolutionLatex = *req.SolutionLatex
	}
	if req.Difficulty != nil {
		exercise.Difficulty = *req.Difficulty
	}
	if req.EstimatedTimeSec != nil {
		exercise.EstimatedTimeSec = *req.EstimatedTimeSec
	}
	if req.Points != nil {
		exercise.Points = *req.Points
	}
	if req.Status != nil {
		exercise.Status = entities.ExerciseStatus(*req.Status)
	}

	if err := ec.store.UpdateExercise(exercise); err != nil {
		respondInternalError(c, err, "update exercise")
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// DeleteExercise removes an exercise with its tag and segment links
// DELETE /api/exercises/:id
func (ec *ExercisesController) DeleteExercise(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	exercise, err := ec.store.GetExerciseByID(id)
	if err != nil {
		respondNotFound(c, "exercise")
		return
	}

	if err := ec.store.DeleteExercise(id); err != nil {
		respondInternalError(c, err, "delete exercise")
		return
	}

	if ec.auditService != nil {
		name := exercise.StatementLatex
		if len(name) > 60 {
			name = name[:60]
		}
		ec.auditService.LogDelete("exercise", id, name)
	}

	c.Status(http.StatusNoContent)
}

// GetExerciseSegments returns the segment links of an exercise
// GET /api/exercises/:id/segments
func (ec *ExercisesController) GetExerciseSegments(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	links, err := ec.store.GetSegmentLinks(id)
	if err != nil {
		respondInternalError(c, err, "get exercise segments")
		return
	}
	c.JSON(http.StatusOK, links)
}
