package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/exambank/exambank/internal/entities"
	"github.com/exambank/exambank/internal/tasks"
)

// TagStore defines database operations for tag management.
type TagStore interface {
	UpsertTag(namespace, key, label string) (*entities.Tag, bool, error)
	GetTagByID(id uuid.UUID) (*entities.Tag, error)
	GetAllTags(namespace string) ([]entities.Tag, error)
	SearchTags(query string) ([]entities.Tag, error)
	DeleteTag(id uuid.UUID) error
	DeleteOrphanTags() (int64, error)
	UpsertExerciseTag(link *entities.ExerciseTag) error
	RemoveTagFromExercise(exerciseID, tagID uuid.UUID) error
	GetTagsForExercise(exerciseID uuid.UUID) ([]entities.Tag, error)
}

type TagsController struct {
	store      TagStore
	taskClient *tasks.Client
}

func NewTagsController(store TagStore, taskClient *tasks.Client) *TagsController {
	return &TagsController{store: store, taskClient: taskClient}
}

// GetAllTags returns all tags, optionally filtered by namespace
// GET /api/tags
func (tc *TagsController) GetAllTags(c *gin.Context) {
	tags, err := tc.store.GetAllTags(c.Query("namespace"))
	if err != nil {
		respondInternalError(c, err, "get all tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// CreateTag creates a tag or refreshes the label of an existing one
// POST /api/tags
func (tc *TagsController) CreateTag(c *gin.Context) {
	var req struct {
		Namespace string `json:"namespace" binding:"required"`
		Key       string `json:"key" binding:"required"`
		Label     string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "namespace and key are required")
		return
	}

	tag, created, err := tc.store.UpsertTag(req.Namespace, req.Key, req.Label)
	if err != nil {
		respondInternalError(c, err, "create tag")
		return
	}

	if created {
		respondCreated(c, tag)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// SearchTags searches tags by key or label
// GET /api/tags/search
func (tc *TagsController) SearchTags(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}

	tags, err := tc.store.SearchTags(query)
	if err != nil {
		respondInternalError(c, err, "search tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// DeleteTag removes a tag and its exercise links
// DELETE /api/tags/:id
func (tc *TagsController) DeleteTag(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := tc.store.GetTagByID(id); err != nil {
		respondNotFound(c, "tag")
		return
	}

	if err := tc.store.DeleteTag(id); err != nil {
		respondInternalError(c, err, "delete tag")
		return
	}
	respondSuccess(c, "tag deleted")
}

// GetExerciseTags returns the tags of an exercise
// GET /api/exercises/:id/tags
func (tc *TagsController) GetExerciseTags(c *gin.Context) {
	exerciseID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	tags, err := tc.store.GetTagsForExercise(exerciseID)
	if err != nil {
		respondInternalError(c, err, "get exercise tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// AddTagToExercise links a tag to an exercise, refreshing the weight and
// confidence when the link already exists
// POST /api/exercises/:id/tags
func (tc *TagsController) AddTagToExercise(c *gin.Context) {
	exerciseID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		TagID      *uuid.UUID `json:"tag_id"`
		Namespace  string     `json:"namespace"`
		Key        string     `json:"key"`
		Label      string     `json:"label"`
		Weight     *float64   `json:"weight"`
		Confidence *float64   `json:"confidence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	var tagID uuid.UUID
	switch {
	case req.TagID != nil:
		tagID = *req.TagID
	case req.Namespace != "" && req.Key != "":
		tag, _, err := tc.store.UpsertTag(req.Namespace, req.Key, req.Label)
		if err != nil {
			respondInternalError(c, err, "upsert tag")
			return
		}
		tagID = tag.ID
	default:
		respondBadRequest(c, "tag_id or (namespace, key) required")
		return
	}

	link := &entities.ExerciseTag{
		ExerciseID: exerciseID,
		TagID:      tagID,
		Weight:     1.0,
		Confidence: 1.0,
		CreatedBy:  "api",
	}
	if req.Weight != nil {
		link.Weight = *req.Weight
	}
	if req.Confidence != nil {
		link.Confidence = *req.Confidence
	}

	if err := tc.store.UpsertExerciseTag(link); err != nil {
		respondInternalError(c, err, "add tag to exercise")
		return
	}

	tags, err := tc.store.GetTagsForExercise(exerciseID)
	if err != nil {
		respondSuccess(c, "tag added")
		return
	}
	c.JSON(http.StatusOK, tags)
}

// RemoveTagFromExercise unlinks a tag from an exercise
// DELETE /api/exercises/:id/tags/:tagId
func (tc *TagsController) RemoveTagFromExercise(c *gin.Context) {
	exerciseID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	tagID, ok := parseUUIDParam(c, "tagId")
	if !ok {
		return
	}

	if err := tc.store.RemoveTagFromExercise(exerciseID, tagID); err != nil {
		respondInternalError(c, err, "remove tag from exercise")
		return
	}
	respondSuccess(c, "tag removed")
}

// CleanupOrphanTags enqueues a background cleanup of unused tags
// POST /api/admin/tags/cleanup
func (tc *TagsController) CleanupOrphanTags(c *gin.Context) {
	if tc.taskClient == nil {
		// no task queue: clean up synchronously
		deleted, err := tc.store.DeleteOrphanTags()
		if err != nil {
			respondInternalError(c, err, "cleanup orphan tags")
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
		return
	}

	ids, err := tc.taskClient.Add(tasks.CleanupOrphanTagsTask{}).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue tag cleanup")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": ids[0]})
}
