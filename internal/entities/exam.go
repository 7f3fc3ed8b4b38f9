package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SourceType string

const (
	SourceTypePDF      SourceType = "pdf"
	SourceTypeOficial  SourceType = "oficial"
	SourceTypeCulegere SourceType = "culegere"
)

type ExamType string

const (
	ExamTypeBacalaureat       ExamType = "bacalaureat"
	ExamTypeEvaluareNationala ExamType = "evaluare_nationala"
	ExamTypeSimulare          ExamType = "simulare"
	ExamTypeOlimpiada         ExamType = "olimpiada"
	ExamTypeAlta              ExamType = "alta"
)

type ItemType string

const (
	ItemTypeSubiect1  ItemType = "subiect_1"
	ItemTypeSubiect2  ItemType = "subiect_2"
	ItemTypeSubiect3  ItemType = "subiect_3"
	ItemTypeProblema  ItemType = "problema"
	ItemTypeExercitiu ItemType = "exercitiu"
)

type ExerciseStatus string

const (
	ExerciseStatusDraft    ExerciseStatus = "DRAFT"
	ExerciseStatusReview   ExerciseStatus = "REVIEW"
	ExerciseStatusReady    ExerciseStatus = "READY"
	ExerciseStatusArchived ExerciseStatus = "ARCHIVED"
)

type SegmentStatus string

const (
	SegmentStatusExtracted SegmentStatus = "EXTRACTED"
	SegmentStatusProcessed SegmentStatus = "PROCESSED"
	SegmentStatusFailed    SegmentStatus = "FAILED"
)

type ExtractionMethod string

const (
	ExtractionMethodManual   ExtractionMethod = "MANUAL"
	ExtractionMethodPix2Text ExtractionMethod = "pix2text"
	ExtractionMethodMathpix  ExtractionMethod = "mathpix"
	ExtractionMethodOther    ExtractionMethod = "other"
)

type VariantStatus string

const (
	VariantStatusDraft     VariantStatus = "DRAFT"
	VariantStatusReady     VariantStatus = "READY"
	VariantStatusPublished VariantStatus = "PUBLISHED"
	VariantStatusArchived  VariantStatus = "ARCHIVED"
)

// SegmentRoleStatement marks a segment link as covering an exercise statement.
const SegmentRoleStatement = "statement"

// Source is one imported exam document (typically a PDF).
// The caller-supplied external id lives inside the Notes JSON column,
// not as a first-class column.
type Source struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"size:255" json:"name"`
	Type        SourceType      `gorm:"size:20;default:'pdf'" json:"type"`
	Year        *int            `json:"year,omitempty"`
	Session     string          `gorm:"size:50" json:"session,omitempty"`
	URLFilePath string          `gorm:"size:512" json:"url_file_path,omitempty"`
	Notes       datatypes.JSON  `json:"notes,omitempty"`
	Segments    []SourceSegment `gorm:"foreignKey:SourceID" json:"segments,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SourceSegment is one page (or page range) of a Source.
type SourceSegment struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID         uuid.UUID        `gorm:"type:uuid;index" json:"source_id"`
	PageStart        int              `json:"page_start"`
	PageEnd          int              `json:"page_end"`
	RawExtraction    string           `gorm:"type:text" json:"raw_extraction,omitempty"`
	Checksum         string           `gorm:"size:64" json:"checksum,omitempty"`
	Status           SegmentStatus    `gorm:"size:20;default:'EXTRACTED'" json:"status"`
	ExtractionMethod ExtractionMethod `gorm:"size:20;default:'MANUAL'" json:"extraction_method"`
	Source           Source           `gorm:"foreignKey:SourceID" json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Tag is a classification label, globally unique per (namespace, key).
type Tag struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Namespace string     `gorm:"size:255;uniqueIndex:idx_tags_namespace_key" json:"namespace"`
	Key       string     `gorm:"size:255;uniqueIndex:idx_tags_namespace_key" json:"key"`
	Label     string     `gorm:"size:255" json:"label,omitempty"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Exercise is one problem statement. The external id used for import
// deduplication lives inside the Metadata JSON column.
type Exercise struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExamType         ExamType       `gorm:"size:30;index" json:"exam_type"`
	Profile          string         `gorm:"size:50;index" json:"profile,omitempty"`
	SubjectPart      string         `gorm:"size:30" json:"subject_part,omitempty"`
	ItemType         ItemType       `gorm:"size:20;index" json:"item_type,omitempty"`
	StatementLatex   string         `gorm:"type:text" json:"statement_latex"`
	StatementText    string         `gorm:"type:text" json:"statement_text,omitempty"`
	AnswerLatex      string         `gorm:"type:text" json:"answer_latex,omitempty"`
	SolutionLatex    string         `gorm:"type:text" json:"solution_latex,omitempty"`
	Difficulty       int            `gorm:"index" json:"difficulty,omitempty"`
	EstimatedTimeSec int            `json:"estimated_time_sec,omitempty"`
	Points           int            `json:"points"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	Status           ExerciseStatus `gorm:"size:20;default:'DRAFT';index" json:"status"`
	Tags             []Tag          `gorm:"many2many:exercise_tags;" json:"tags,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ExerciseTag links an exercise to a tag with caller-supplied weight and
// confidence. Unique per (exercise, tag); re-import refreshes the floats.
type ExerciseTag struct {
	ExerciseID uuid.UUID `gorm:"type:uuid;primaryKey" json:"exercise_id"`
	TagID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"tag_id"`
	Weight     float64   `gorm:"default:1" json:"weight"`
	Confidence float64   `gorm:"default:1" json:"confidence"`
	CreatedBy  string    `gorm:"size:50" json:"created_by,omitempty"`
}

// ExerciseSourceSegment records which pages an exercise statement spans.
// Unique per (exercise, segment, role); duplicates are ignored on re-import.
type ExerciseSourceSegment struct {
	ExerciseID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"exercise_id"`
	SourceSegmentID uuid.UUID `gorm:"type:uuid;primaryKey" json:"source_segment_id"`
	Role            string    `gorm:"size:50;primaryKey" json:"role"`
}

// Variant is an assembled, ordered set of exercises forming one exam instance.
type Variant struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string        `gorm:"size:255" json:"name"`
	ExamType        ExamType      `gorm:"size:30;index" json:"exam_type"`
	Profile         string        `gorm:"size:50" json:"profile,omitempty"`
	Year            *int          `json:"year,omitempty"`
	Session         string        `gorm:"size:50" json:"session,omitempty"`
	TotalPoints     int           `json:"total_points,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	Instructions    string        `gorm:"type:text" json:"instructions,omitempty"`
	Status          VariantStatus `gorm:"size:20;default:'DRAFT'" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// VariantExercise places an exercise at a position within a variant.
type VariantExercise struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VariantID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_variant_exercise" json:"variant_id"`
	ExerciseID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_variant_exercise" json:"exercise_id"`
	OrderIndex  int       `json:"order_index"`
	SectionName string    `gorm:"size:100" json:"section_name,omitempty"`
	Exercise    Exercise  `gorm:"foreignKey:ExerciseID" json:"exercise,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Source) TableName() string {
	return "sources"
}

func (SourceSegment) TableName() string {
	return "source_segments"
}

func (Tag) TableName() string {
	return "tags"
}

func (Exercise) TableName() string {
	return "exercises"
}

func (ExerciseTag) TableName() string {
	return "exercise_tags"
}

func (ExerciseSourceSegment) TableName() string {
	return "exercise_source_segments"
}

func (Variant) TableName() string {
	return "variants"
}

func (VariantExercise) TableName() string {
	return "variant_exercises"
}

// IDs are generated in Go so that sqlite and postgres behave identically.

func (s *Source) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *SourceSegment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (e *Exercise) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (v *Variant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *VariantExercise) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// SourceNotes is the shape of the Source.Notes JSON column.
type SourceNotes struct {
	ExternalID string `json:"external_id"`
	PageCount  int    `json:"page_count"`
	ImportedAt string `json:"imported_at,omitempty"`
}

// ExerciseMetadata is the shape of the Exercise.Metadata JSON column.
type ExerciseMetadata struct {
	ExternalID       string `json:"external_id"`
	ParentExternalID string `json:"parent_external_id,omitempty"`
	ImportedAt       string `json:"imported_at,omitempty"`
}
