package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Database, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Source and segment endpoints
	if cfg.SourceStore != nil {
		sourcesController := NewSourcesController(cfg.SourceStore, cfg.AuditService, cfg.UploadDir)
		router.GET("/api/sources", sourcesController.GetAllSources)
		router.POST("/api/sources", sourcesController.CreateSource)
		router.POST("/api/sources/upload", sourcesController.Upload)
		router.GET("/api/sources/:id", sourcesController.GetSource)
		router.PUT("/api/sources/:id", sourcesController.UpdateSource)
		router.DELETE("/api/sources/:id", sourcesController.DeleteSource)
	}
	if cfg.SegmentStore != nil {
		segmentsController := NewSegmentsController(cfg.SegmentStore)
		router.GET("/api/segments", segmentsController.ListSegments)
		router.POST("/api/segments", segmentsController.CreateSegment)
		router.GET("/api/segments/:id", segmentsController.GetSegment)
		router.GET("/api/sources/:id/segments", segmentsController.GetSourceSegments)
	}

	// Exercise endpoints
	if cfg.ExerciseStore != nil {
		exercisesController := NewExercisesController(cfg.ExerciseStore, cfg.AuditService)
		router.GET("/api/exercises", exercisesController.ListExercises)
		router.POST("/api/exercises", exercisesController.CreateExercise)
		router.GET("/api/exercises/:id", exercisesController.GetExercise)
		router.PUT("/api/exercises/:id", exercisesController.UpdateExercise)
		router.DELETE("/api/exercises/:id", exercisesController.DeleteExercise)
		router.GET("/api/exercises/:id/segments", exercisesController.GetExerciseSegments)
	}

	// Tag management endpoints
	if cfg.TagStore != nil {
		tagsController := NewTagsController(cfg.TagStore, cfg.TaskClient)
		router.GET("/api/tags", tagsController.GetAllTags)
		router.POST("/api/tags", tagsController.CreateTag)
		router.GET("/api/tags/search", tagsController.SearchTags)
		router.DELETE("/api/tags/:id", tagsController.DeleteTag)
		router.GET("/api/exercises/:id/tags", tagsController.GetExerciseTags)
		router.POST("/api/exercises/:id/tags", tagsController.AddTagToExercise)
		router.DELETE("/api/exercises/:id/tags/:tagId", tagsController.RemoveTagFromExercise)
		router.POST("/api/admin/tags/cleanup", tagsController.CleanupOrphanTags)
	}

	// Variant endpoints
	if cfg.VariantStore != nil {
		variantsController := NewVariantsController(cfg.VariantStore, cfg.Generator, cfg.TaskClient, cfg.AuditService)
		router.GET("/api/variants", variantsController.ListVariants)
		router.POST("/api/variants", variantsController.CreateVariant)
		router.POST("/api/variants/generate", variantsController.GenerateVariant)
		router.GET("/api/variants/:id", variantsController.GetVariant)
		router.PUT("/api/variants/:id", variantsController.UpdateVariant)
		router.DELETE("/api/variants/:id", variantsController.DeleteVariant)
		router.GET("/api/variants/:id/exercises", variantsController.GetVariantExercises)
		router.POST("/api/variants/:id/exercises", variantsController.AddExercisesToVariant)
		router.PUT("/api/variants/:id/exercises/reorder", variantsController.ReorderVariantExercises)
		router.DELETE("/api/variants/:id/exercises/:exerciseId", variantsController.RemoveExerciseFromVariant)
	}

	// Import endpoint
	if cfg.ImportRunner != nil {
		importController := NewImportController(cfg.ImportRunner, cfg.Auditor, cfg.AuditService)
		router.POST("/api/import/json", importController.Import)
	}

	// Audit log endpoint
	if cfg.AuditService != nil {
		auditController := NewAuditController(cfg.AuditService)
		router.GET("/api/audit", auditController.GetAuditEvents)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
