package model

// Theme is one pedagogical theme identified in a transcript by the
// analysis stage. Field names mirror the JSON the model is asked for.
type Theme struct {
	Title       string   `json:"titre"`
	KeyConcepts []string `json:"concepts_cles"`
	Duration    string   `json:"duree_estimee"`
}

// CoursePlan is the structure extracted from a transcript before
// translation: the themes and the order they should be taught in.
type CoursePlan struct {
	Themes      []Theme  `json:"themes"`
	Progression []string `json:"progression_logique"`
}

// CourseModule is one fully composed module of the final document.
type CourseModule struct {
	Number     int
	Title      string
	Duration   string
	Concepts   []string
	Content    string
	Objectives []string
	Questions  []string
}

// QualityReport is the heuristic assessment of a generated course.
type QualityReport struct {
	Score       float64  `json:"score"`
	ModuleCount int      `json:"module_count"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
