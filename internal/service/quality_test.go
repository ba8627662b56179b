package service

import "testing"

func TestAssessCourseMock(t *testing.T) {
	course := NewCourseService(nil).composeMock()
	report := AssessCourse(course)

	if report.ModuleCount != 3 {
		t.Fatalf("module count = %d, want 3", report.ModuleCount)
	}
	if report.Score < 0.9 {
		t.Fatalf("mock course scored %.2f, issues: %v", report.Score, report.Issues)
	}
}

func TestAssessCoursePenalizesMissingSections(t *testing.T) {
	report := AssessCourse("# Titre\n\nDu texte sans aucune structure de cours.")

	if report.ModuleCount != 0 {
		t.Fatalf("module count = %d, want 0", report.ModuleCount)
	}
	if report.Score >= 0.5 {
		t.Fatalf("structureless document scored %.2f, want < 0.5", report.Score)
	}
	if len(report.Issues) == 0 {
		t.Fatal("expected issues for structureless document")
	}
}
