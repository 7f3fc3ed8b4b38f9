// Package exercises provides database operations for exercise management.
package exercises

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/exambank/exambank/internal/entities"
)

// ListFilter narrows down exercise listings.
type ListFilter struct {
	ExamType      entities.ExamType
	ItemType      entities.ItemType
	Profile       string
	Status        entities.ExerciseStatus
	MinDifficulty int
	MaxDifficulty int
	TagID         uuid.UUID
	Limit         int
	Offset        int
}

// SelectionCriteria describes a random draw from the exercise pool, used
// by the variant generator.
type SelectionCriteria struct {
	ExamType      entities.ExamType
	ItemType      entities.ItemType
	MinDifficulty int
	MaxDifficulty int
	Count         int
}

// Repository handles all exercise database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new exercises repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateExercise inserts a new exercise.
func (r *Repository) CreateExercise(exercise *entities.Exercise) error {
	return r.db.Create(exercise).Error
}

// GetExerciseByID retrieves an exercise with its tags.
func (r *Repository) GetExerciseByID(id uuid.UUID) (*entities.Exercise, error) {
	var exercise entities.Exercise
	err := r.db.Preload("Tags").First(&exercise, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// FindExerciseByExternalID looks up an exercise by the external id stored
// in its metadata JSON column. Returns nil when no exercise matches.
func (r *Repository) FindExerciseByExternalID(externalID string) (*entities.Exercise, error) {
	var exercise entities.Exercise
	err := r.db.Where(datatypes.JSONQuery("metadata").Equals(externalID, "external_id")).
		First(&exercise).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// ListExercises retrieves exercises matching the filter, most recent first.
func (r *Repository) ListExercises(filter ListFilter) ([]entities.Exercise, int64, error) {
	query := r.db.Model(&entities.Exercise{})

	if filter.ExamType != "" {
		query = query.Where("exam_type = ?", filter.ExamType)
	}
	if filter.ItemType != "" {
		query = query.Where("item_type = ?", filter.ItemType)
	}
	if filter.Profile != "" {
		query = query.Where("profile = ?", filter.Profile)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MinDifficulty > 0 {
		query = query.Where("difficulty >= ?", filter.MinDifficulty)
	}
	if filter.MaxDifficulty > 0 {
		query = query.Where("difficulty <= ?", filter.MaxDifficulty)
	}
	if filter.TagID != uuid.Nil {
		query = query.Where("id IN (SELECT exercise_id FROM exercise_tags WHERE tag_id = ?)", filter.TagID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var exercises []entities.Exercise
	err := query.Preload("Tags").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&exercises).Error
	return exercises, total, err
}

// UpdateExercise saves changes to an existing exercise.
func (r *Repository) UpdateExercise(exercise *entities.Exercise) error {
	return r.db.Save(exercise).Error
}

// DeleteExercise removes an exercise together with its tag and segment links.
func (r *Repository) DeleteExercise(id uuid.UUID) error {
	if err := r.db.Where("exercise_id = ?", id).Delete(&entities.ExerciseTag{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("exercise_id = ?", id).Delete(&entities.ExerciseSourceSegment{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&entities.Exercise{}, "id = ?", id).Error
}

// LinkSegment records that an exercise spans a source segment. The insert
// is silently skipped when the (exercise, segment, role) triple exists.
func (r *Repository) LinkSegment(link *entities.ExerciseSourceSegment) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetSegmentLinks retrieves the segment links of an exercise.
func (r *Repository) GetSegmentLinks(exerciseID uuid.UUID) ([]entities.ExerciseSourceSegment, error) {
	var links []entities.ExerciseSourceSegment
	err := r.db.Where("exercise_id = ?", exerciseID).Find(&links).Error
	return links, err
}

// SelectRandom draws up to Count random exercises matching the criteria.
// Archived exercises are never selected.
func (r *Repository) SelectRandom(criteria SelectionCriteria) ([]entities.Exercise, error) {
	query := r.db.Where("status <> ?", entities.ExerciseStatusArchived)

	if criteria.MinDifficulty > 0 {
		query = query.Where("difficulty >= ?", criteria.MinDifficulty)
	}
	if criteria.MaxDifficulty > 0 {
		query = query.Where("difficulty <= ?", criteria.MaxDifficulty)
	}
	if criteria.ItemType != "" {
		query = query.Where("(item_type = ? OR item_type = ?)", criteria.ItemType, entities.ItemTypeExercitiu)
	}
	if criteria.ExamType != "" {
		query = query.Where("exam_type = ?", criteria.ExamType)
	}

	var exercises []entities.Exercise
	err := query.Order("RANDOM()").Limit(criteria.Count).Find(&exercises).Error
	return exercises, err
}

// Count returns the total number of exercises.
func (r *Repository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&entities.Exercise{}).Count(&total).Error
	return total, err
}
