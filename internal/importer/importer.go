package importer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/database/sources"
	"github.com/exambank/exambank/internal/database/tags"
	"github.com/exambank/exambank/internal/entities"
)

// CreatedByImport marks rows written by the import pipeline.
const CreatedByImport = "import_script"

// Options control a single import run.
type Options struct {
	// IncludeContainers imports zero-point container exercises (grouping
	// parents) instead of skipping them.
	IncludeContainers bool
}

// Summary reports what one import run wrote. Sources, Segments, Tags,
// Exercises and ExerciseSourceSegments count created rows only; reused
// rows are not counted. ExerciseTags counts links written, whether
// created or refreshed in place.
type Summary struct {
	Sources                int      `json:"sources"`
	Segments               int      `json:"segments"`
	Tags                   int      `json:"tags"`
	Exercises              int      `json:"exercises"`
	ExerciseTags           int      `json:"exercise_tags"`
	ExerciseSourceSegments int      `json:"exercise_source_segments"`
	Warnings               []string `json:"warnings"`
}

// Importer runs import documents through the six-stage pipeline. Each
// Import call executes in a single transaction: any storage failure rolls
// back the whole run.
type Importer struct {
	db *gorm.DB
}

// New creates an importer on top of the given database handle.
func New(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// Import validates the document and materializes it. Validation failures
// return a *ValidationError before any write happens. Unresolvable
// references (a tag ref missing from the catalog, a page without a
// segment) are not errors: the affected link is skipped and a warning is
// appended to the summary.
func (i *Importer) Import(doc *Document, opts Options) (*Summary, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	summary := &Summary{Warnings: []string{}}
	err := i.db.Transaction(func(tx *gorm.DB) error {
		run := &importRun{
			doc:         doc,
			opts:        opts,
			summary:     summary,
			sources:     sources.NewRepository(tx),
			tags:        tags.NewRepository(tx),
			exercises:   exercises.NewRepository(tx),
			tagIDs:      make(map[string]uuid.UUID),
			exerciseIDs: make(map[string]uuid.UUID),
		}
		stages := []func() error{
			run.resolveSource,
			run.materializeSegments,
			run.upsertTags,
			run.createExercises,
			run.linkTags,
			run.linkSegments,
		}
		for _, stage := range stages {
			if err := stage(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// importRun holds the request-scoped state of one pipeline execution.
// The lookup maps are rebuilt from scratch on every run; nothing is
// cached across imports.
type importRun struct {
	doc     *Document
	opts    Options
	summary *Summary

	sources   *sources.Repository
	tags      *tags.Repository
	exercises *exercises.Repository

	sourceID       uuid.UUID
	sourceIsNew    bool
	segmentsByPage map[int]uuid.UUID
	tagIDs         map[string]uuid.UUID
	exerciseIDs    map[string]uuid.UUID
}

// resolveSource finds the source by external id or creates it. Existing
// sources follow PolicyReuse: the stored row is kept and only its id is
// resolved.
func (r *importRun) resolveSource() error {
	desc := r.doc.Source

	existing, err := r.sources.FindSourceByExternalID(desc.ExternalID)
	if err != nil {
		return err
	}
	if existing != nil {
		r.sourceID = existing.ID
		return nil
	}

	notes, err := json.Marshal(entities.SourceNotes{
		ExternalID: desc.ExternalID,
		PageCount:  desc.PageCount,
		ImportedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	name := desc.Name
	if name == "" {
		name = "Source " + desc.ExternalID
	}

	source := &entities.Source{
		Name:        name,
		Type:        sourceType(desc.Type),
		Session:     desc.Session,
		URLFilePath: storagePath(desc),
		Notes:       notes,
	}
	if desc.Year > 0 {
		year := desc.Year
		source.Year = &year
	}

	if err := r.sources.CreateSource(source); err != nil {
		return err
	}
	r.sourceID = source.ID
	r.sourceIsNew = true
	r.summary.Sources++
	return nil
}

// materializeSegments creates one segment per page for a new source, or
// loads the stored segments of a reused one. A reused source keeps its
// segment set as-is, even when the incoming page_count differs.
func (r *importRun) materializeSegments() error {
	if !r.sourceIsNew {
		byPage, err := r.sources.SegmentsByPage(r.sourceID)
		if err != nil {
			return err
		}
		r.segmentsByPage = byPage
		return nil
	}

	r.segmentsByPage = make(map[int]uuid.UUID, r.doc.Source.PageCount)
	for page := 1; page <= r.doc.Source.PageCount; page++ {
		segment := &entities.SourceSegment{
			SourceID:         r.sourceID,
			PageStart:        page,
			PageEnd:          page,
			Status:           entities.SegmentStatusExtracted,
			ExtractionMethod: entities.ExtractionMethodManual,
		}
		if err := r.sources.CreateSegment(segment); err != nil {
			return err
		}
		r.segmentsByPage[page] = segment.ID
		r.summary.Segments++
	}
	return nil
}

// upsertTags writes the tag catalog and builds the (namespace, key) to
// id lookup used by the linking stage.
func (r *importRun) upsertTags() error {
	for _, desc := range r.doc.TagCatalog {
		tag, created, err := r.reconcileTag(desc)
		if err != nil {
			return err
		}
		r.tagIDs[tagKey(desc.Namespace, desc.Key)] = tag.ID
		if created {
			r.summary.Tags++
		}
	}
	return nil
}

// reconcileTag applies PolicyFor("tags"): update-in-place refreshes the
// label of an existing tag, any other policy leaves stored tags untouched.
func (r *importRun) reconcileTag(desc TagDescriptor) (*entities.Tag, bool, error) {
	if PolicyFor("tags") == PolicyUpdateInPlace {
		return r.tags.UpsertTag(desc.Namespace, desc.Key, desc.Label)
	}
	existing, err := r.tags.GetTag(desc.Namespace, desc.Key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return r.tags.UpsertTag(desc.Namespace, desc.Key, desc.Label)
}

// createExercises inserts new exercises and resolves the ids of already
// imported ones. Existing exercises are reconciled per PolicyFor
// ("exercises"): skip-if-exists never overwrites them, so manual edits
// survive re-imports. Either way they enter the lookup map so the linking
// stages cover them.
func (r *importRun) createExercises() error {
	for _, desc := range r.doc.Exercises {
		if desc.Points == 0 && !r.opts.IncludeContainers {
			continue
		}

		existing, err := r.exercises.FindExerciseByExternalID(desc.ExternalID)
		if err != nil {
			return err
		}
		if existing != nil {
			r.exerciseIDs[desc.ExternalID] = existing.ID
			if PolicyFor("exercises") == PolicyUpdateInPlace {
				if err := r.refreshExercise(existing, desc); err != nil {
					return err
				}
			}
			continue
		}

		metadata, err := json.Marshal(entities.ExerciseMetadata{
			ExternalID:       desc.ExternalID,
			ParentExternalID: desc.ParentExternalID,
			ImportedAt:       time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}

		exercise := &entities.Exercise{
			ExamType:         examType(desc.ExamType),
			Profile:          desc.Profile,
			SubjectPart:      desc.SubjectPart,
			ItemType:         itemType(desc.ItemType),
			StatementLatex:   desc.StatementLatex,
			StatementText:    desc.StatementText,
			AnswerLatex:      desc.AnswerLatex,
			SolutionLatex:    desc.SolutionLatex,
			Difficulty:       desc.Difficulty,
			EstimatedTimeSec: desc.EstimatedTimeSec,
			Points:           desc.Points,
			Metadata:         metadata,
			Status:           entities.ExerciseStatusDraft,
		}
		if err := r.exercises.CreateExercise(exercise); err != nil {
			return err
		}
		r.exerciseIDs[desc.ExternalID] = exercise.ID
		r.summary.Exercises++
	}
	return nil
}

// refreshExercise rewrites the mutable fields of an existing exercise
// from the incoming descriptor. Runs only when PolicyFor("exercises") is
// update-in-place; metadata and status are preserved either way.
func (r *importRun) refreshExercise(existing *entities.Exercise, desc ExerciseDescriptor) error {
	existing.ExamType = examType(desc.ExamType)
	existing.ItemType = itemType(desc.ItemType)
	existing.Profile = desc.Profile
	existing.SubjectPart = desc.SubjectPart
	existing.StatementLatex = desc.StatementLatex
	existing.StatementText = desc.StatementText
	existing.AnswerLatex = desc.AnswerLatex
	existing.SolutionLatex = desc.SolutionLatex
	existing.Difficulty = desc.Difficulty
	existing.EstimatedTimeSec = desc.EstimatedTimeSec
	existing.Points = desc.Points
	return r.exercises.UpdateExercise(existing)
}

// linkTags writes the exercise-tag links per PolicyUpdateInPlace: weight
// and confidence of an existing link are refreshed. A tag ref that is not
// in the document's catalog produces a warning and is skipped; the run
// continues.
func (r *importRun) linkTags() error {
	for _, desc := range r.doc.Exercises {
		exerciseID, ok := r.exerciseIDs[desc.ExternalID]
		if !ok {
			continue
		}
		for _, ref := range desc.Tags {
			tagID, ok := r.tagIDs[tagKey(ref.Namespace, ref.Key)]
			if !ok {
				r.warnf("exercise %s references unknown tag (%s, %s)",
					desc.ExternalID, ref.Namespace, ref.Key)
				continue
			}
			link := &entities.ExerciseTag{
				ExerciseID: exerciseID,
				TagID:      tagID,
				Weight:     ref.weight(),
				Confidence: ref.confidence(),
				CreatedBy:  CreatedByImport,
			}
			if err := r.tags.UpsertExerciseTag(link); err != nil {
				return err
			}
			r.summary.ExerciseTags++
		}
	}
	return nil
}

// linkSegments records which pages each exercise statement spans, per
// PolicyIgnoreIfExists: duplicate (exercise, segment, role) triples are
// dropped silently. Pages with no segment produce a warning and are
// skipped.
func (r *importRun) linkSegments() error {
	for _, desc := range r.doc.Exercises {
		exerciseID, ok := r.exerciseIDs[desc.ExternalID]
		if !ok {
			continue
		}
		ref := desc.SourceRef
		if ref.PageStart < 1 || ref.PageEnd < ref.PageStart {
			r.warnf("exercise %s has no usable page range", desc.ExternalID)
			continue
		}
		for page := ref.PageStart; page <= ref.PageEnd; page++ {
			segmentID, ok := r.segmentsByPage[page]
			if !ok {
				r.warnf("exercise %s references page %d with no segment",
					desc.ExternalID, page)
				continue
			}
			link := &entities.ExerciseSourceSegment{
				ExerciseID:      exerciseID,
				SourceSegmentID: segmentID,
				Role:            entities.SegmentRoleStatement,
			}
			created, err := r.exercises.LinkSegment(link)
			if err != nil {
				return err
			}
			if created {
				r.summary.ExerciseSourceSegments++
			}
		}
	}
	return nil
}

func (r *importRun) warnf(format string, args ...any) {
	r.summary.Warnings = append(r.summary.Warnings, fmt.Sprintf(format, args...))
}

func tagKey(namespace, key string) string {
	return namespace + "/" + key
}

func storagePath(desc SourceDescriptor) string {
	if desc.FileName == "" {
		return ""
	}
	if desc.Year > 0 && desc.Type != "" && desc.Profile != "" {
		return fmt.Sprintf("%d/%s/%s/%s", desc.Year, desc.Type, desc.Profile, desc.FileName)
	}
	return desc.FileName
}

func sourceType(value string) entities.SourceType {
	switch entities.SourceType(value) {
	case entities.SourceTypePDF, entities.SourceTypeOficial, entities.SourceTypeCulegere:
		return entities.SourceType(value)
	}
	return entities.SourceTypePDF
}

func examType(value string) entities.ExamType {
	switch value {
	case "BAC":
		return entities.ExamTypeBacalaureat
	case "EN":
		return entities.ExamTypeEvaluareNationala
	}
	switch entities.ExamType(value) {
	case entities.ExamTypeBacalaureat, entities.ExamTypeEvaluareNationala,
		entities.ExamTypeSimulare, entities.ExamTypeOlimpiada, entities.ExamTypeAlta:
		return entities.ExamType(value)
	}
	return entities.ExamTypeBacalaureat
}

func itemType(value string) entities.ItemType {
	switch value {
	case "item":
		return entities.ItemTypeExercitiu
	case "problem":
		return entities.ItemTypeProblema
	}
	switch entities.ItemType(value) {
	case entities.ItemTypeSubiect1, entities.ItemTypeSubiect2, entities.ItemTypeSubiect3,
		entities.ItemTypeProblema, entities.ItemTypeExercitiu:
		return entities.ItemType(value)
	}
	return entities.ItemTypeExercitiu
}
