// Package importer materializes structured import documents into the
// exam database: one source with its page segments, a tag catalog, the
// exercises, and the links between them.
//
// The pipeline runs in six strictly ordered stages because later stages
// resolve identifiers produced by earlier ones:
//
//  1. sources
//  2. source_segments
//  3. tags
//  4. exercises
//  5. exercise_tags
//  6. exercise_source_segments
//
// Re-running an import with the same document never duplicates business
// entities; see the reconciliation policies in policy.go.
package importer

import "fmt"

// Document is the JSON import payload accepted by the pipeline.
type Document struct {
	SchemaVersion string               `json:"schema_version"`
	Source        SourceDescriptor     `json:"source"`
	TagCatalog    []TagDescriptor      `json:"tag_catalog"`
	Exercises     []ExerciseDescriptor `json:"exercises"`
}

// SourceDescriptor describes the document being imported.
type SourceDescriptor struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Year       int    `json:"year,omitempty"`
	Profile    string `json:"profile,omitempty"`
	Session    string `json:"session,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	PageCount  int    `json:"page_count"`
}

// TagDescriptor is one entry of the tag catalog.
type TagDescriptor struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Label     string `json:"label,omitempty"`
}

// SourceRef locates an exercise statement within the source document.
type SourceRef struct {
	PageStart int `json:"page_start"`
	PageEnd   int `json:"page_end"`
}

// TagRef references a catalog tag from an exercise. Weight and confidence
// default to 1.0 when absent.
type TagRef struct {
	Namespace  string   `json:"namespace"`
	Key        string   `json:"key"`
	Weight     *float64 `json:"weight,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ExerciseDescriptor is one exercise of the import payload.
type ExerciseDescriptor struct {
	ExternalID       string    `json:"external_id"`
	ExamType         string    `json:"exam_type,omitempty"`
	ItemType         string    `json:"item_type,omitempty"`
	Profile          string    `json:"profile,omitempty"`
	SubjectPart      string    `json:"subject_part,omitempty"`
	Points           int       `json:"points"`
	Difficulty       int       `json:"difficulty,omitempty"`
	EstimatedTimeSec int       `json:"estimated_time_sec,omitempty"`
	StatementLatex   string    `json:"statement_latex"`
	StatementText    string    `json:"statement_text,omitempty"`
	AnswerLatex      string    `json:"answer_latex,omitempty"`
	SolutionLatex    string    `json:"solution_latex,omitempty"`
	SourceRef        SourceRef `json:"source_ref"`
	Tags             []TagRef  `json:"tags,omitempty"`
	ParentExternalID string    `json:"parent_external_id,omitempty"`
}

// ValidationError reports a malformed import document. No writes are
// performed when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid import document: %s: %s", e.Field, e.Reason)
}

// Validate checks the preconditions of the import contract.
func (d *Document) Validate() error {
	if d.SchemaVersion == "" {
		return &ValidationError{Field: "schema_version", Reason: "is required"}
	}
	if d.Source.ExternalID == "" {
		return &ValidationError{Field: "source.external_id", Reason: "is required"}
	}
	if d.Source.Type == "" {
		return &ValidationError{Field: "source.type", Reason: "is required"}
	}
	if d.Source.PageCount < 1 {
		return &ValidationError{Field: "source.page_count", Reason: "must be at least 1"}
	}
	for i, tag := range d.TagCatalog {
		if tag.Namespace == "" || tag.Key == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("tag_catalog[%d]", i),
				Reason: "namespace and key are required",
			}
		}
	}
	for i, ex := range d.Exercises {
		if ex.ExternalID == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("exercises[%d].external_id", i),
				Reason: "is required",
			}
		}
		if ex.Points < 0 {
			return &ValidationError{
				Field:  fmt.Sprintf("exercises[%d].points", i),
				Reason: "must not be negative",
			}
		}
	}
	return nil
}

func (t TagRef) weight() float64 {
	if t.Weight == nil {
		return 1.0
	}
	return *t.Weight
}

func (t TagRef) confidence() float64 {
	if t.Confidence == nil {
		return 1.0
	}
	return *t.Confidence
}
