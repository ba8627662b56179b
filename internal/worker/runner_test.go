package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coursebuilder/api/internal/model"
	"github.com/coursebuilder/api/internal/service"
	"github.com/coursebuilder/api/internal/store"
)

type fakeFetcher struct {
	err  error
	path string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeTranscriber struct {
	err      error
	observed int // task progress at call time
	s        *store.TaskStore
	taskID   string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, chunk time.Duration) (*service.Transcript, error) {
	if f.s != nil {
		task, _ := f.s.Get(f.taskID)
		f.observed = task.Progress
	}
	if f.err != nil {
		return nil, f.err
	}
	return &service.Transcript{
		Markdown: "## Chunk 1 [00:00:00 → 00:10:00]\n\nhello\n\n",
		Plain:    "hello\n\n",
	}, nil
}

type fakeComposer struct {
	err      error
	observed int
	s        *store.TaskStore
	taskID   string
}

func (f *fakeComposer) Compose(ctx context.Context, transcript string) (string, error) {
	if f.s != nil {
		task, _ := f.s.Get(f.taskID)
		f.observed = task.Progress
	}
	if f.err != nil {
		return "", f.err
	}
	return "# Cours\n\n## 🎯 Module 1: Introduction\n\ncontenu\n", nil
}

func newTestRunner(t *testing.T, s *store.TaskStore, fetcher *fakeFetcher, tr *fakeTranscriber, comp *fakeComposer) *Runner {
	t.Helper()
	cacheDir := t.TempDir()
	outputDir := t.TempDir()
	return NewRunner(s, fetcher, tr, comp, cacheDir, outputDir)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish in time")
	}
}

func TestYouTubePipelineHappyPath(t *testing.T) {
	s := store.NewTaskStore()
	task := s.Create(model.TaskTypeYouTube)

	fetcher := &fakeFetcher{path: "audio.mp3"}
	tr := &fakeTranscriber{s: s, taskID: task.ID}
	comp := &fakeComposer{s: s, taskID: task.ID}
	r := newTestRunner(t, s, fetcher, tr, comp)

	waitDone(t, r.LaunchYouTube(task.ID, "https://youtu.be/abc12345678", 10))

	got, _ := s.Get(task.ID)
	if got.Status != model.TaskStatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", got.Status, got.Error)
	}
	if got.Progress != 100 {
		t.Fatalf("progress = %d, want 100", got.Progress)
	}
	if got.Result == nil {
		t.Fatal("completed task has no result")
	}

	// checkpoint ordering: transcription starts at 30, composition at 65
	if tr.observed != 30 {
		t.Errorf("transcriber saw progress %d, want 30", tr.observed)
	}
	if comp.observed != 65 {
		t.Errorf("composer saw progress %d, want 65", comp.observed)
	}

	// artifacts exist
	if _, err := os.Stat(got.Result.CourseFile); err != nil {
		t.Errorf("course file missing: %v", err)
	}
	if _, err := os.Stat(got.Result.TranscriptFile); err != nil {
		t.Errorf("transcript file missing: %v", err)
	}
	if !strings.HasPrefix(got.Result.DownloadURL, "/download/course_") {
		t.Errorf("download url = %q", got.Result.DownloadURL)
	}
}

func TestYouTubePipelineStageFailures(t *testing.T) {
	acquisitionErr := model.NewPipelineError(model.StageAcquisition, errors.New("yt-dlp exploded"))
	transcriptionErr := model.NewPipelineError(model.StageTranscription, errors.New("whisper unavailable"))
	compositionErr := model.NewPipelineError(model.StageComposition, errors.New("llm unavailable"))

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		tr      *fakeTranscriber
		comp    *fakeComposer
		wantIn  string
	}{
		{"acquisition fails", &fakeFetcher{err: acquisitionErr}, &fakeTranscriber{}, &fakeComposer{}, "acquisition"},
		{"transcription fails", &fakeFetcher{path: "a.mp3"}, &fakeTranscriber{err: transcriptionErr}, &fakeComposer{}, "transcription"},
		{"composition fails", &fakeFetcher{path: "a.mp3"}, &fakeTranscriber{}, &fakeComposer{err: compositionErr}, "composition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewTaskStore()
			task := s.Create(model.TaskTypeYouTube)
			r := newTestRunner(t, s, tt.fetcher, tt.tr, tt.comp)

			waitDone(t, r.LaunchYouTube(task.ID, "https://youtu.be/abc12345678", 10))

			got, _ := s.Get(task.ID)
			if got.Status != model.TaskStatusFailed {
				t.Fatalf("status = %s, want failed", got.Status)
			}
			if got.Error == "" {
				t.Fatal("failed task has empty error")
			}
			if !strings.Contains(got.Error, tt.wantIn) {
				t.Errorf("error %q does not mention stage %q", got.Error, tt.wantIn)
			}
			if got.Result != nil {
				t.Error("failed task has a result")
			}
		})
	}
}

func TestLocalPipelineHappyPath(t *testing.T) {
	s := store.NewTaskStore()
	task := s.Create(model.TaskTypeLocal)

	uploadDir := t.TempDir()
	transcriptPath := filepath.Join(uploadDir, "uploaded.md")
	if err := os.WriteFile(transcriptPath, []byte("some transcript text"), 0o644); err != nil {
		t.Fatal(err)
	}

	comp := &fakeComposer{s: s, taskID: task.ID}
	r := newTestRunner(t, s, &fakeFetcher{}, &fakeTranscriber{}, comp)

	waitDone(t, r.LaunchLocal(task.ID, transcriptPath, "my_course.md"))

	got, _ := s.Get(task.ID)
	if got.Status != model.TaskStatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", got.Status, got.Error)
	}
	if got.Result == nil {
		t.Fatal("no result")
	}
	if filepath.Base(got.Result.CourseFile) != "my_course.md" {
		t.Errorf("course file = %q, want basename my_course.md", got.Result.CourseFile)
	}
	if got.Result.DownloadURL != "/download/my_course.md" {
		t.Errorf("download url = %q", got.Result.DownloadURL)
	}
	if comp.observed != 50 {
		t.Errorf("composer saw progress %d, want 50", comp.observed)
	}
}

func TestLocalPipelineMissingFile(t *testing.T) {
	s := store.NewTaskStore()
	task := s.Create(model.TaskTypeLocal)
	r := newTestRunner(t, s, &fakeFetcher{}, &fakeTranscriber{}, &fakeComposer{})

	waitDone(t, r.LaunchLocal(task.ID, "/nonexistent/upload.md", "out.md"))

	got, _ := s.Get(task.ID)
	if got.Status != model.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.Error, "storage") {
		t.Errorf("error %q does not mention storage stage", got.Error)
	}
}

func TestPipelinesDoNotInterfere(t *testing.T) {
	s := store.NewTaskStore()
	a := s.Create(model.TaskTypeYouTube)
	b := s.Create(model.TaskTypeYouTube)

	failing := newTestRunner(t, s,
		&fakeFetcher{err: model.NewPipelineError(model.StageAcquisition, errors.New("boom"))},
		&fakeTranscriber{}, &fakeComposer{})
	healthy := newTestRunner(t, s, &fakeFetcher{path: "a.mp3"}, &fakeTranscriber{}, &fakeComposer{})

	doneA := failing.LaunchYouTube(a.ID, "https://youtu.be/abc12345678", 10)
	doneB := healthy.LaunchYouTube(b.ID, "https://youtu.be/def12345678", 10)
	waitDone(t, doneA)
	waitDone(t, doneB)

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(b.ID)
	if gotA.Status != model.TaskStatusFailed {
		t.Errorf("task A status = %s, want failed", gotA.Status)
	}
	if gotB.Status != model.TaskStatusCompleted {
		t.Errorf("task B status = %s, want completed", gotB.Status)
	}
}
