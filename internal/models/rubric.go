package models

import "time"

// Rubric is an immutable grading rubric, content-addressed by the SHA-1 of
// its canonicalized criteria. Two rubrics with identical content share one
// stored instance; rows are created on first occurrence and never mutated.
type Rubric struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ContentHash string      `gorm:"size:40;not null;uniqueIndex" json:"content_hash"`
	Criteria    []Criterion `gorm:"constraint:OnDelete:CASCADE" json:"criteria"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Criterion is one scored dimension of a rubric.
type Criterion struct {
	ID       uint              `gorm:"primaryKey" json:"id"`
	RubricID uint              `gorm:"not null;index" json:"rubric_id"`
	Name     string            `gorm:"size:255;not null" json:"name"`
	OrderNum int               `gorm:"not null" json:"order_num"`
	Prompt   string            `gorm:"type:text" json:"prompt"`
	Options  []CriterionOption `gorm:"constraint:OnDelete:CASCADE" json:"options"`
}

// CriterionOption is one selectable point value within a criterion.
type CriterionOption struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CriterionID uint   `gorm:"not null;index" json:"criterion_id"`
	OrderNum    int    `gorm:"not null" json:"order_num"`
	Points      uint   `gorm:"not null" json:"points"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Explanation string `gorm:"type:text" json:"explanation"`
}

// PointsPossible is the highest total a grader can award with this rubric:
// the sum over criteria of each criterion's maximum option points.
func (r Rubric) PointsPossible() int {
	total := 0
	for _, criterion := range r.Criteria {
		max := 0
		for _, option := range criterion.Options {
			if int(option.Points) > max {
				max = int(option.Points)
			}
		}
		total += max
	}
	return total
}

// FindOption resolves a (criterion name, option name) pair against the rubric
// tree. The second return reports whether both names matched.
func (r Rubric) FindOption(criterionName, optionName string) (CriterionOption, bool) {
	for _, criterion := range r.Criteria {
		if criterion.Name != criterionName {
			continue
		}
		for _, option := range criterion.Options {
			if option.Name == optionName {
				return option, true
			}
		}
		return CriterionOption{}, false
	}
	return CriterionOption{}, false
}
