package http

// This file documents the store interface layout used by HTTP controllers.
// Each controller defines its own narrow interface in its own file
// (Interface Segregation Principle):
//
//	SourceStore   (sources.go)   - source CRUD, segment creation, external id lookup
//	SegmentStore  (segments.go)  - segment retrieval and manual creation
//	ExerciseStore (exercises.go) - exercise CRUD, listing filters, segment links
//	TagStore      (tags.go)      - tag upsert/search/delete, exercise tag links
//	VariantStore  (variants.go)  - variant CRUD, placements, point recounts
//
// The gorm repositories under internal/database implement these
// interfaces; tests substitute in-memory fakes where convenient.
