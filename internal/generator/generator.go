package generator

import (
	"log"

	"github.com/exambank/exambank/internal/database/exercises"
	"github.com/exambank/exambank/internal/database/variants"
	"github.com/exambank/exambank/internal/entities"
)

const (
	defaultMinDifficulty   = 3
	defaultMaxDifficulty   = 7
	defaultDurationMinutes = 180
)

// Request describes the variant to generate.
type Request struct {
	Name            string
	ExamType        entities.ExamType
	Profile         string
	Year            int
	Session         string
	MinDifficulty   int
	MaxDifficulty   int
	DurationMinutes int
}

// SectionResult reports the fill level of one section.
type SectionResult struct {
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Selected  int    `json:"selected"`
}

// Result reports the generated variant.
type Result struct {
	Variant       *entities.Variant `json:"variant"`
	ExerciseCount int               `json:"exercise_count"`
	TotalPoints   int               `json:"total_points"`
	Sections      []SectionResult   `json:"sections"`
}

// Generator draws random exercises from the pool and assembles them into
// a variant following the exam structure.
type Generator struct {
	variants  *variants.Repository
	exercises *exercises.Repository
}

// New creates a generator.
func New(variantsRepo *variants.Repository, exercisesRepo *exercises.Repository) *Generator {
	return &Generator{variants: variantsRepo, exercises: exercisesRepo}
}

// Generate creates a DRAFT variant and fills its sections with randomly
// selected exercises in the requested difficulty range. When a section
// cannot be filled with matching item types, the selection is relaxed to
// any non-archived exercise in the difficulty range. The variant's
// total_points is the nominal total of the structure, not the sum of
// whatever was actually placed.
func (g *Generator) Generate(req Request) (*Result, error) {
	structure, err := StructureFor(req.ExamType)
	if err != nil {
		return nil, err
	}

	if req.MinDifficulty == 0 {
		req.MinDifficulty = defaultMinDifficulty
	}
	if req.MaxDifficulty == 0 {
		req.MaxDifficulty = defaultMaxDifficulty
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = defaultDurationMinutes
	}

	variant := &entities.Variant{
		Name:            req.Name,
		ExamType:        req.ExamType,
		Profile:         req.Profile,
		Session:         req.Session,
		DurationMinutes: req.DurationMinutes,
		Status:          entities.VariantStatusDraft,
	}
	if req.Year > 0 {
		year := req.Year
		variant.Year = &year
	}
	if err := g.variants.CreateVariant(variant); err != nil {
		return nil, err
	}

	result := &Result{Variant: variant}
	orderIndex := 0

	for _, section := range structure.Sections {
		selected, err := g.selectForSection(section, req)
		if err != nil {
			return nil, err
		}

		for _, exercise := range selected {
			placement := &entities.VariantExercise{
				VariantID:   variant.ID,
				ExerciseID:  exercise.ID,
				OrderIndex:  orderIndex,
				SectionName: section.Name,
			}
			if err := g.variants.AddExercise(placement); err != nil {
				return nil, err
			}
			orderIndex++
		}

		result.ExerciseCount += len(selected)
		result.Sections = append(result.Sections, SectionResult{
			Name:      section.Name,
			Requested: section.ExerciseCount(),
			Selected:  len(selected),
		})
	}

	result.TotalPoints = structure.TotalPoints()
	if err := g.variants.UpdateTotalPoints(variant.ID, result.TotalPoints); err != nil {
		return nil, err
	}
	variant.TotalPoints = result.TotalPoints

	return result, nil
}

func (g *Generator) selectForSection(section Section, req Request) ([]entities.Exercise, error) {
	needed := section.ExerciseCount()

	selected, err := g.exercises.SelectRandom(exercises.SelectionCriteria{
		ExamType:      req.ExamType,
		ItemType:      section.ItemType,
		MinDifficulty: req.MinDifficulty,
		MaxDifficulty: req.MaxDifficulty,
		Count:         needed,
	})
	if err != nil {
		return nil, err
	}
	if len(selected) >= needed {
		return selected, nil
	}

	log.Printf("variant generator: found only %d/%d exercises for %s, relaxing selection",
		len(selected), needed, section.Name)

	// any non-archived exercise in the difficulty range
	return g.exercises.SelectRandom(exercises.SelectionCriteria{
		MinDifficulty: req.MinDifficulty,
		MaxDifficulty: req.MaxDifficulty,
		Count:         needed,
	})
}
