// Package worker runs course-generation pipelines in the background, one
// goroutine per task. Goroutines never coordinate with each other; the
// task store is the only shared state.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/coursebuilder/api/internal/model"
	"github.com/coursebuilder/api/internal/service"
	"github.com/coursebuilder/api/internal/store"
)

// AudioFetcher acquires a local audio file for a video URL.
type AudioFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Transcriber converts an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, chunk time.Duration) (*service.Transcript, error)
}

// Composer turns transcript text into a French course document.
type Composer interface {
	Compose(ctx context.Context, transcript string) (string, error)
}

// Runner executes one pipeline per submitted task and owns the only
// write path to the task store after submission.
type Runner struct {
	store       *store.TaskStore
	audio       AudioFetcher
	transcriber Transcriber
	composer    Composer
	cacheDir    string
	outputDir   string
}

func NewRunner(s *store.TaskStore, audio AudioFetcher, transcriber Transcriber, composer Composer, cacheDir, outputDir string) *Runner {
	return &Runner{
		store:       s,
		audio:       audio,
		transcriber: transcriber,
		composer:    composer,
		cacheDir:    cacheDir,
		outputDir:   outputDir,
	}
}

// LaunchYouTube starts the full pipeline for a YouTube URL in a new
// goroutine. The returned channel closes when the task reaches a terminal
// state.
func (r *Runner) LaunchYouTube(taskID, url string, chunkMinutes int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.runYouTube(taskID, url, chunkMinutes)
	}()
	return done
}

// LaunchLocal starts the composition-only pipeline for an uploaded
// transcript file.
func (r *Runner) LaunchLocal(taskID, transcriptPath, outputName string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.runLocal(taskID, transcriptPath, outputName)
	}()
	return done
}

func (r *Runner) runYouTube(taskID, url string, chunkMinutes int) {
	ctx := context.Background()
	log.Printf("task %s: starting YouTube pipeline for %s", taskID, url)

	r.store.Progress(taskID, 5, "Initializing YouTube download...")

	audioPath, err := r.audio.Fetch(ctx, url)
	if err != nil {
		r.fail(taskID, err)
		return
	}

	r.store.Progress(taskID, 30, "Audio ready. Transcribing...")

	transcript, err := r.transcriber.Transcribe(ctx, audioPath, time.Duration(chunkMinutes)*time.Minute)
	if err != nil {
		r.fail(taskID, err)
		return
	}

	transcriptPath := filepath.Join(r.cacheDir, fmt.Sprintf("transcript_%s.md", taskID))
	if err := os.WriteFile(transcriptPath, []byte(transcript.Markdown), 0o644); err != nil {
		r.fail(taskID, model.NewPipelineError(model.StageStorage, err))
		return
	}

	r.store.Progress(taskID, 65, "Transcript completed. Generating course...")

	course, err := r.composer.Compose(ctx, transcript.Markdown)
	if err != nil {
		r.fail(taskID, err)
		return
	}

	r.store.Progress(taskID, 90, "Saving course document...")

	courseName := fmt.Sprintf("course_%s.md", taskID)
	result, err := r.saveCourse(courseName, course)
	if err != nil {
		r.fail(taskID, err)
		return
	}
	result.TranscriptFile = transcriptPath

	r.store.Complete(taskID, result, "Course generated successfully")
	log.Printf("task %s: completed", taskID)
}

func (r *Runner) runLocal(taskID, transcriptPath, outputName string) {
	ctx := context.Background()
	log.Printf("task %s: starting local transcript pipeline", taskID)

	r.store.Progress(taskID, 20, "Processing local transcript...")

	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		r.fail(taskID, model.NewPipelineError(model.StageStorage,
			fmt.Errorf("transcript file not readable: %w", err)))
		return
	}

	r.store.Progress(taskID, 50, "Generating course...")

	course, err := r.composer.Compose(ctx, string(data))
	if err != nil {
		r.fail(taskID, err)
		return
	}

	r.store.Progress(taskID, 90, "Saving course document...")

	result, err := r.saveCourse(outputName, course)
	if err != nil {
		r.fail(taskID, err)
		return
	}

	r.store.Complete(taskID, result, "Course generated successfully")
	log.Printf("task %s: completed", taskID)
}

func (r *Runner) saveCourse(filename, course string) (model.TaskResult, error) {
	path := filepath.Join(r.outputDir, filename)
	if err := os.WriteFile(path, []byte(course), 0o644); err != nil {
		return model.TaskResult{}, model.NewPipelineError(model.StageStorage, err)
	}

	report := service.AssessCourse(course)
	if len(report.Issues) > 0 {
		log.Printf("course %s: quality %.2f, issues: %v", filename, report.Score, report.Issues)
	}

	return model.TaskResult{
		CourseFile:   path,
		DownloadURL:  "/download/" + filename,
		QualityScore: report.Score,
	}, nil
}

func (r *Runner) fail(taskID string, err error) {
	log.Printf("task %s: failed: %v", taskID, err)
	r.store.Fail(taskID, err.Error())
}
