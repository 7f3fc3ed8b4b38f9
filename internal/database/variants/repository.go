// Package variants provides database operations for exam variant management.
package variants

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/exambank/exambank/internal/entities"
)

// ListFilter narrows down variant listings.
type ListFilter struct {
	ExamType entities.ExamType
	Profile  string
	Status   entities.VariantStatus
	Year     int
}

// Repository handles all variant database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new variants repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateVariant inserts a new variant.
func (r *Repository) CreateVariant(variant *entities.Variant) error {
	return r.db.Create(variant).Error
}

// GetVariantByID retrieves a variant.
func (r *Repository) GetVariantByID(id uuid.UUID) (*entities.Variant, error) {
	var variant entities.Variant
	err := r.db.First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariants retrieves variants matching the filter, most recent first.
func (r *Repository) ListVariants(filter ListFilter) ([]entities.Variant, error) {
	query := r.db.Order("created_at DESC")
	if filter.ExamType != "" {
		query = query.Where("exam_type = ?", filter.ExamType)
	}
	if filter.Profile != "" {
		query = query.Where("profile = ?", filter.Profile)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Year > 0 {
		query = query.Where("year = ?", filter.Year)
	}

	var variants []entities.Variant
	err := query.Find(&variants).Error
	return variants, err
}

// UpdateVariant saves changes to an existing variant.
func (r *Repository) UpdateVariant(variant *entities.Variant) error {
	return r.db.Save(variant).Error
}

// DeleteVariant removes a variant and its exercise placements.
func (r *Repository) DeleteVariant(id uuid.UUID) error {
	if err := r.db.Where("variant_id = ?", id).Delete(&entities.VariantExercise{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&entities.Variant{}, "id = ?", id).Error
}

// AddExercise places an exercise in a variant. Placements are unique per
// (variant, exercise); re-adding an exercise is a no-op.
func (r *Repository) AddExercise(placement *entities.VariantExercise) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "exercise_id"}},
		DoNothing: true,
	}).Create(placement).Error
}

// GetExercises retrieves a variant's placements in order, with exercises.
func (r *Repository) GetExercises(variantID uuid.UUID) ([]entities.VariantExercise, error) {
	var placements []entities.VariantExercise
	err := r.db.Preload("Exercise").Preload("Exercise.Tags").
		Where("variant_id = ?", variantID).
		Order("order_index ASC").
		Find(&placements).Error
	return placements, err
}

// RemoveExercise removes an exercise from a variant.
func (r *Repository) RemoveExercise(variantID, exerciseID uuid.UUID) error {
	return r.db.Where("variant_id = ? AND exercise_id = ?", variantID, exerciseID).
		Delete(&entities.VariantExercise{}).Error
}

// Reorder rewrites the order_index of a variant's placements to match the
// supplied exercise id ordering. Exercises not present in the list keep
// their index.
func (r *Repository) Reorder(variantID uuid.UUID, exerciseIDs []uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i, exerciseID := range exerciseIDs {
			err := tx.Model(&entities.VariantExercise{}).
				Where("variant_id = ? AND exercise_id = ?", variantID, exerciseID).
				Update("order_index", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateTotalPoints sets a variant's total point count.
func (r *Repository) UpdateTotalPoints(variantID uuid.UUID, totalPoints int) error {
	return r.db.Model(&entities.Variant{}).
		Where("id = ?", variantID).
		Update("total_points", totalPoints).Error
}

// RecountTotalPoints recomputes total_points from the placed exercises.
// Returns the new total.
func (r *Repository) RecountTotalPoints(variantID uuid.UUID) (int, error) {
	var total int
	err := r.db.Model(&entities.VariantExercise{}).
		Select("COALESCE(SUM(exercises.points), 0)").
		Joins("JOIN exercises ON exercises.id = variant_exercises.exercise_id").
		Where("variant_exercises.variant_id = ?", variantID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if err := r.UpdateTotalPoints(variantID, total); err != nil {
		return 0, err
	}
	return total, nil
}
