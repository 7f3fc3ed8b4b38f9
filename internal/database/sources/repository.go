// Package sources provides database operations for exam sources and
// their page segments.
package sources

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/exambank/exambank/internal/entities"
)

// Repository handles all source and segment database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sources repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateSource inserts a new source.
func (r *Repository) CreateSource(source *entities.Source) error {
	return r.db.Create(source).Error
}

// GetSourceByID retrieves a source with its segments ordered by page.
func (r *Repository) GetSourceByID(id uuid.UUID) (*entities.Source, error) {
	var source entities.Source
	err := r.db.Preload("Segments", func(db *gorm.DB) *gorm.DB {
		return db.Order("page_start ASC")
	}).First(&source, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// GetAllSources retrieves all sources ordered by creation time.
func (r *Repository) GetAllSources() ([]entities.Source, error) {
	var sources []entities.Source
	err := r.db.Order("created_at DESC").Find(&sources).Error
	return sources, err
}

// FindSourceByExternalID looks up a source by the external id stored in
// its notes JSON column. Returns nil when no source matches.
func (r *Repository) FindSourceByExternalID(externalID string) (*entities.Source, error) {
	var source entities.Source
	err := r.db.Where(datatypes.JSONQuery("notes").Equals(externalID, "external_id")).
		First(&source).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// UpdateSource saves changes to an existing source.
func (r *Repository) UpdateSource(source *entities.Source) error {
	return r.db.Save(source).Error
}

// DeleteSource removes a source and its segments.
func (r *Repository) DeleteSource(id uuid.UUID) error {
	if err := r.db.Where("source_id = ?", id).Delete(&entities.SourceSegment{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&entities.Source{}, "id = ?", id).Error
}

// CreateSegment inserts a new source segment.
func (r *Repository) CreateSegment(segment *entities.SourceSegment) error {
	return r.db.Create(segment).Error
}

// GetSegmentByID retrieves a single segment.
func (r *Repository) GetSegmentByID(id uuid.UUID) (*entities.SourceSegment, error) {
	var segment entities.SourceSegment
	err := r.db.First(&segment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

// GetSegmentsBySource retrieves all segments of a source ordered by page.
func (r *Repository) GetSegmentsBySource(sourceID uuid.UUID) ([]entities.SourceSegment, error) {
	var segments []entities.SourceSegment
	err := r.db.Where("source_id = ?", sourceID).Order("page_start ASC").Find(&segments).Error
	return segments, err
}

// SegmentsByPage returns a page number to segment id lookup for the
// single-page segments of a source. Used to resolve exercise page ranges
// against a previously imported source.
func (r *Repository) SegmentsByPage(sourceID uuid.UUID) (map[int]uuid.UUID, error) {
	segments, err := r.GetSegmentsBySource(sourceID)
	if err != nil {
		return nil, err
	}
	byPage := make(map[int]uuid.UUID, len(segments))
	for _, seg := range segments {
		if seg.PageStart == seg.PageEnd {
			byPage[seg.PageStart] = seg.ID
		}
	}
	return byPage, nil
}
