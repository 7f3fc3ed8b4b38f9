// Package tags provides database operations for tag management.
//
// This package implements the TagStore interface defined in internal/http/tags.go.
//
// # Interface Implementation
//
//	var _ http.TagStore = (*Repository)(nil)
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, _, err := repo.UpsertTag("domain", "algebra", "Algebra")
package tags

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/exambank/exambank/internal/entities"
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// UpsertTag inserts a tag or refreshes the label of an existing one.
// Tags are identified by their (namespace, key) compound key. The second
// return value reports whether a new row was created.
func (r *Repository) UpsertTag(namespace, key, label string) (*entities.Tag, bool, error) {
	var tag entities.Tag
	err := r.db.Where("namespace = ? AND key = ?", namespace, key).First(&tag).Error
	if err == gorm.ErrRecordNotFound {
		tag = entities.Tag{
			Namespace: namespace,
			Key:       key,
			Label:     label,
		}
		if err := r.db.Create(&tag).Error; err != nil {
			return nil, false, err
		}
		return &tag, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if label != "" && label != tag.Label {
		tag.Label = label
		if err := r.db.Save(&tag).Error; err != nil {
			return nil, false, err
		}
	}
	return &tag, false, nil
}

// GetTagByID retrieves a tag by ID.
func (r *Repository) GetTagByID(id uuid.UUID) (*entities.Tag, error) {
	var tag entities.Tag
	err := r.db.First(&tag, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTag retrieves a tag by its (namespace, key) compound key.
// Returns nil when no tag matches.
func (r *Repository) GetTag(namespace, key string) (*entities.Tag, error) {
	var tag entities.Tag
	err := r.db.Where("namespace = ? AND key = ?", namespace, key).First(&tag).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetAllTags retrieves all tags, optionally filtered by namespace.
func (r *Repository) GetAllTags(namespace string) ([]entities.Tag, error) {
	var tags []entities.Tag
	query := r.db.Order("namespace ASC, key ASC")
	if namespace != "" {
		query = query.Where("namespace = ?", namespace)
	}
	err := query.Find(&tags).Error
	return tags, err
}

// SearchTags searches tags by key or label (case-insensitive partial match).
func (r *Repository) SearchTags(query string) ([]entities.Tag, error) {
	var tags []entities.Tag
	searchPattern := "%" + query + "%"
	err := r.db.Where("LOWER(key) LIKE LOWER(?) OR LOWER(label) LIKE LOWER(?)", searchPattern, searchPattern).
		Find(&tags).Error
	return tags, err
}

// DeleteTag deletes a tag and its exercise links.
func (r *Repository) DeleteTag(id uuid.UUID) error {
	if err := r.db.Where("tag_id = ?", id).Delete(&entities.ExerciseTag{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&entities.Tag{}, "id = ?", id).Error
}

// DeleteOrphanTags removes all tags with no exercise links that are not
// a parent of another tag.
func (r *Repository) DeleteOrphanTags() (int64, error) {
	result := r.db.Exec(`
		DELETE FROM tags
		WHERE id NOT IN (SELECT tag_id FROM exercise_tags)
		AND id NOT IN (SELECT parent_id FROM tags WHERE parent_id IS NOT NULL)
	`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpsertExerciseTag inserts an exercise-tag link or, when the (exercise, tag)
// pair already exists, updates its weight and confidence in place.
func (r *Repository) UpsertExerciseTag(link *entities.ExerciseTag) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exercise_id"}, {Name: "tag_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight", "confidence"}),
	}).Create(link).Error
}

// RemoveTagFromExercise removes a tag link from an exercise.
func (r *Repository) RemoveTagFromExercise(exerciseID, tagID uuid.UUID) error {
	return r.db.Where("exercise_id = ? AND tag_id = ?", exerciseID, tagID).
		Delete(&entities.ExerciseTag{}).Error
}

// GetTagsForExercise retrieves the tag links of an exercise together with
// the tags themselves.
func (r *Repository) GetTagsForExercise(exerciseID uuid.UUID) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.db.
		Joins("JOIN exercise_tags ON exercise_tags.tag_id = tags.id").
		Where("exercise_tags.exercise_id = ?", exerciseID).
		Order("tags.namespace ASC, tags.key ASC").
		Find(&tags).Error
	return tags, err
}
