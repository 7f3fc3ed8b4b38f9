package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/audit"
	"github.com/exambank/exambank/internal/database/variants"
	"github.com/exambank/exambank/internal/entities"
	"github.com/exambank/exambank/internal/generator"
	"github.com/exambank/exambank/internal/tasks"
)

// VariantStore defines database operations for variant management.
type VariantStore interface {
	CreateVariant(variant *entities.Variant) error
	GetVariantByID(id uuid.UUID) (*entities.Variant, error)
	ListVariants(filter variants.ListFilter) ([]entities.Variant, error)
	UpdateVariant(variant *entities.Variant) error
	DeleteVariant(id uuid.UUID) error
	AddExercise(placement *entities.VariantExercise) error
	GetExercises(variantID uuid.UUID) ([]entities.VariantExercise, error)
	RemoveExercise(variantID, exerciseID uuid.UUID) error
	Reorder(variantID uuid.UUID, exerciseIDs []uuid.UUID) error
	RecountTotalPoints(variantID uuid.UUID) (int, error)
}

type VariantsController struct {
	store        VariantStore
	generator    *generator.Generator
	taskClient   *tasks.Client
	auditService *audit.Service
}

func NewVariantsController(store VariantStore, gen *generator.Generator, taskClient *tasks.Client, auditService *audit.Service) *VariantsController {
	return &VariantsController{store: store, generator: gen, taskClient: taskClient, auditService: auditService}
}

type variantCreateRequest struct {
	Name            string `json:"name" binding:"required"`
	ExamType        string `json:"exam_type"`
	Profile         string `json:"profile"`
	Year            *int   `json:"year"`
	Session         string `json:"session"`
	DurationMinutes int    `json:"duration_minutes"`
	Instructions    string `json:"instructions"`
}

type variantUpdateRequest struct {
	Name            *string `json:"name"`
	Profile         *string `json:"profile"`
	Year            *int    `json:"year"`
	Session         *string `json:"session"`
	DurationMinutes *int    `json:"duration_minutes"`
	Instructions    *string `json:"instructions"`
	Status          *string `json:"status"`
}

// ListVariants returns variants matching the query filters
// GET /api/variants
func (vc *VariantsController) ListVariants(c *gin.Context) {
	filter := variants.ListFilter{
		ExamType: entities.ExamType(c.Query("exam_type")),
		Profile:  c.Query("profile"),
		Status:   entities.VariantStatus(c.Query("status")),
		Year:     parseQueryInt(c, "year"),
	}

	items, err := vc.store.ListVariants(filter)
	if err != nil {
		respondInternalError(c, err, "list variants")
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetVariant returns a single variant
// GET /api/variants/:id
func (vc *VariantsController) GetVariant(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	variant, err := vc.store.GetVariantByID(id)
	if err != nil {
		respondNotFound(c, "variant")
		return
	}
	c.JSON(http.StatusOK, variant)
}

// CreateVariant creates an empty variant in DRAFT status
// POST /api/variants
func (vc *VariantsController) CreateVariant(c *gin.Context) {
	var req variantCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	variant := &entities.Variant{
		Name:            req.Name,
		ExamType:        entities.ExamType(req.ExamType),
		Profile:         req.Profile,
		Year:            req.Year,
		Session:         req.Session,
		DurationMinutes: req.DurationMinutes,
		Instructions:    req.Instructions,
		Status:          entities.VariantStatusDraft,
	}
	if err := vc.store.CreateVariant(variant); err != nil {
		respondInternalError(c, err, "create variant")
		return
	}

	respondCreated(c, variant)
}

// UpdateVariant updates the mutable fields of a variant
// PUT /api/variants/:id
func (vc *VariantsController) UpdateVariant(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	variant, err := vc.store.GetVariantByID(id)
	if err != nil {
		respondNotFound(c, "variant")
		return
	}

	var req variantUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.Name != nil {
		variant.Name = *req.Name
	}
	if req.Profile != nil {
		variant.Profile = *req.Profile
	}
	if req.Year != nil {
		variant.Year = req.Year
	}
	if req.Session != nil {
		variant.Session = *req.Session
	}
	if req.DurationMinutes != nil {
		variant.DurationMinutes = *req.DurationMinutes
	}
	if req.Instructions != nil {
		variant.Instructions = *req.Instructions
	}
	if req.Status != nil {
		variant.Status = entities.VariantStatus(*req.Status)
	}

	if err := vc.store.UpdateVariant(variant); err != nil {
		respondInternalError(c, err, "update variant")
		return
	}
	c.JSON(http.StatusOK, variant)
}

// DeleteVariant removes a variant and its placements
// DELETE /api/variants/:id
func (vc *VariantsController) DeleteVariant(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	variant, err := vc.store.GetVariantByID(id)
	if err != nil {
		respondNotFound(c, "variant")
		return
	}

	if err := vc.store.DeleteVariant(id); err != nil {
		respondInternalError(c, err, "delete variant")
		return
	}

	if vc.auditService != nil {
		vc.auditService.LogDelete("variant", id, variant.Name)
	}

	c.Status(http.StatusNoContent)
}

// GetVariantExercises returns a variant's placements in order
// GET /api/variants/:id/exercises
func (vc *VariantsController) GetVariantExercises(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	placements, err := vc.store.GetExercises(id)
	if err != nil {
		respondInternalError(c, err, "get variant exercises")
		return
	}
	c.JSON(http.StatusOK, placements)
}

// AddExercisesToVariant places exercises in a variant. Already placed
// exercises are skipped.
// POST /api/variants/:id/exercises
func (vc *VariantsController) AddExercisesToVariant(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := vc.store.GetVariantByID(id); err != nil {
		respondNotFound(c, "variant")
		return
	}

	var req struct {
		ExerciseIDs []uuid.UUID `json:"exercise_ids" binding:"required"`
		SectionName string      `json:"section_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "exercise_ids is required")
		return
	}

	existing, err := vc.store.GetExercises(id)
	if err != nil {
		respondInternalError(c, err, "get variant exercises")
		return
	}
	nextIndex := len(existing)

	for _, exerciseID := range req.ExerciseIDs {
		placement := &entities.VariantExercise{
			VariantID:   id,
			ExerciseID:  exerciseID,
			OrderIndex:  nextIndex,
			SectionName: req.SectionName,
		}
		if err := vc.store.AddExercise(placement); err != nil {
			respondInternalError(c, err, "add exercise to variant")
			return
		}
		nextIndex++
	}

	vc.recountPoints(id)
	respondSuccess(c, "exercises added")
}

// RemoveExerciseFromVariant removes an exercise from a variant
// DELETE /api/variants/:id/exercises/:exerciseId
func (vc *VariantsController) RemoveExerciseFromVariant(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	exerciseID, ok := parseUUIDParam(c, "exerciseId")
	if !ok {
		return
	}

	if err := vc.store.RemoveExercise(id, exerciseID); err != nil {
		respondInternalError(c, err, "remove exercise from variant")
		return
	}

	vc.recountPoints(id)
	respondSuccess(c, "exercise removed")
}

// ReorderVariantExercises rewrites the placement order
// PUT /api/variants/:id/exercises/reorder
func (vc *VariantsController) ReorderVariantExercises(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ExerciseIDs []uuid.UUID `json:"exercise_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "exercise_ids is required")
		return
	}

	if err := vc.store.Reorder(id, req.ExerciseIDs); err != nil {
		respondInternalError(c, err, "reorder variant exercises")
		return
	}
	respondSuccess(c, "exercises reordered")
}

// GenerateVariant assembles a new variant from the exercise pool
// POST /api/variants/generate
func (vc *VariantsController) GenerateVariant(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		ExamType        string `json:"exam_type" binding:"required"`
		Profile         string `json:"profile"`
		Year            int    `json:"year"`
		Session         string `json:"session"`
		MinDifficulty   int    `json:"min_difficulty"`
		MaxDifficulty   int    `json:"max_difficulty"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and exam_type are required")
		return
	}

	result, err := vc.generator.Generate(generator.Request{
		Name:            req.Name,
		ExamType:        entities.ExamType(req.ExamType),
		Profile:         req.Profile,
		Year:            req.Year,
		Session:         req.Session,
		MinDifficulty:   req.MinDifficulty,
		MaxDifficulty:   req.MaxDifficulty,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	respondCreated(c, result)
}

// recountPoints refreshes total_points after a placement change, through
// the task queue when available.
func (vc *VariantsController) recountPoints(variantID uuid.UUID) {
	if vc.taskClient != nil {
		if _, err := vc.taskClient.Add(tasks.RecountVariantPointsTask{VariantID: variantID}).Save(); err == nil {
			return
		}
	}
	if _, err := vc.store.RecountTotalPoints(variantID); err != nil {
		log.Printf("Failed to recount points for variant %s: %v", variantID, err)
	}
}
