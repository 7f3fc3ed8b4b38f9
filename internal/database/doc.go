// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and schema migration
//	├── sources/         # Source documents and their page segments
//	├── tags/            # Tag catalog and exercise-tag associations
//	├── exercises/       # Exercise CRUD, filtering and random selection
//	├── variants/        # Exam variants and exercise placements
//	└── audit/           # Audit event log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase(database.DriverSQLite, "./exambank.db")
//
//	// Create domain-specific repositories
//	sourcesRepo := sources.NewRepository(db.DB)
//	tagsRepo := tags.NewRepository(db.DB)
//	exercisesRepo := exercises.NewRepository(db.DB)
//
//	// Use repositories
//	source, err := sourcesRepo.GetSourceByID(id)
//	linked, err := tagsRepo.GetTagsForExercise(exerciseID)
//
// # Interface Implementations
//
// The http package declares per-controller store interfaces; repositories
// satisfy them structurally:
//
//   - sources.Repository: implements http.SourceStore and http.SegmentStore
//   - tags.Repository: implements http.TagStore
//   - exercises.Repository: implements http.ExerciseStore
//   - variants.Repository: implements http.VariantStore
//
// # Adding a New Domain
//
// To add a new domain (e.g., analytics):
//
//  1. Create a new sub-package: internal/database/analytics/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Register its entities in database.NewDatabase's AutoMigrate call
package database
