package service

import (
	"regexp"
	"strings"

	"github.com/coursebuilder/api/internal/model"
)

// Quality bounds for a generated course.
const (
	minModules = 3
	maxModules = 12
)

var (
	moduleHeadingRe = regexp.MustCompile(`(?m)^## 🎯 Module \d+`)
	objectivesRe    = regexp.MustCompile(`### 🎓 Objectifs d'Apprentissage`)
	questionsRe     = regexp.MustCompile(`### 🤔 Questions de Réflexion`)
	glossaryRe      = regexp.MustCompile(`### 📖 Glossaire`)
)

// AssessCourse runs heuristic quality checks over a composed course
// document. The score informs the task result; a poor score is reported,
// never fatal.
func AssessCourse(markdown string) model.QualityReport {
	report := model.QualityReport{Score: 1.0}

	report.ModuleCount = len(moduleHeadingRe.FindAllString(markdown, -1))
	switch {
	case report.ModuleCount == 0:
		report.Score -= 0.4
		report.Issues = append(report.Issues, "no module headings found")
	case report.ModuleCount < minModules:
		report.Score -= 0.2
		report.Suggestions = append(report.Suggestions, "fewer than 3 modules; consider merging source material less aggressively")
	case report.ModuleCount > maxModules:
		report.Score -= 0.1
		report.Suggestions = append(report.Suggestions, "more than 12 modules; consider consolidating themes")
	}

	if !objectivesRe.MatchString(markdown) {
		report.Score -= 0.15
		report.Issues = append(report.Issues, "no learning objectives section")
	}
	if !questionsRe.MatchString(markdown) {
		report.Score -= 0.1
		report.Issues = append(report.Issues, "no reflection questions section")
	}
	if !glossaryRe.MatchString(markdown) {
		report.Score -= 0.05
		report.Suggestions = append(report.Suggestions, "add a glossary appendix")
	}

	if avg := averageSentenceLength(markdown); avg > 35 {
		report.Score -= 0.1
		report.Suggestions = append(report.Suggestions, "sentences are long for live presentation; aim for under 25 words")
	}

	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s`)

func averageSentenceLength(text string) float64 {
	sentences := sentenceSplitRe.Split(text, -1)
	if len(sentences) == 0 {
		return 0
	}
	words := 0
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	return float64(words) / float64(len(sentences))
}
