// Package generator assembles exam variants from the exercise pool
// according to the official exam structures.
package generator

import (
	"fmt"

	"github.com/exambank/exambank/internal/entities"
)

// Section describes one subject block of an exam structure.
type Section struct {
	Name               string
	ItemType           entities.ItemType
	Count              int
	HasVariants        bool
	VariantsPerProblem int
	PointsEach         int
}

// ExerciseCount returns the number of exercises the section needs.
// Sections with sub-variants (a, b, c) need one exercise per sub-variant.
func (s Section) ExerciseCount() int {
	if s.HasVariants {
		return s.Count * s.VariantsPerProblem
	}
	return s.Count
}

// ExamStructure is the blueprint of one exam type.
type ExamStructure struct {
	ExamType entities.ExamType
	Sections []Section
}

// TotalPoints returns the nominal point total of the structure.
func (e ExamStructure) TotalPoints() int {
	total := 0
	for _, s := range e.Sections {
		total += s.PointsEach * s.Count
	}
	return total
}

// StructureFor returns the official structure of the given exam type.
func StructureFor(examType entities.ExamType) (ExamStructure, error) {
	switch examType {
	case entities.ExamTypeBacalaureat:
		return ExamStructure{
			ExamType: entities.ExamTypeBacalaureat,
			Sections: []Section{
				{
					Name:       "Subiectul I",
					ItemType:   entities.ItemTypeSubiect1,
					Count:      6,
					PointsEach: 5,
				},
				{
					Name:               "Subiectul II",
					ItemType:           entities.ItemTypeSubiect2,
					Count:              2,
					HasVariants:        true,
					VariantsPerProblem: 3,
					PointsEach:         15,
				},
				{
					Name:               "Subiectul III",
					ItemType:           entities.ItemTypeSubiect3,
					Count:              2,
					HasVariants:        true,
					VariantsPerProblem: 3,
					PointsEach:         15,
				},
			},
		}, nil
	case entities.ExamTypeEvaluareNationala:
		return ExamStructure{
			ExamType: entities.ExamTypeEvaluareNationala,
			Sections: []Section{
				{
					Name:       "Subiectul I",
					ItemType:   entities.ItemTypeSubiect1,
					Count:      6,
					PointsEach: 5,
				},
				{
					Name:       "Subiectul II",
					ItemType:   entities.ItemTypeSubiect2,
					Count:      3,
					PointsEach: 10,
				},
			},
		}, nil
	}
	return ExamStructure{}, fmt.Errorf("exam type %q is not supported for auto-generation", examType)
}
