package model

import "time"

// TaskStatus is the lifecycle state of a course-generation task.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task types
const (
	TaskTypeYouTube = "youtube_pipeline"
	TaskTypeLocal   = "local_transcript"
)

// Task is one end-to-end course-generation request and its tracked lifecycle.
// Records live only in memory; a process restart forgets them.
type Task struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    TaskStatus  `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Error     string      `json:"error,omitempty"`
	Result    *TaskResult `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TaskResult describes the artifacts of a completed task.
type TaskResult struct {
	TranscriptFile string  `json:"transcript_file,omitempty"`
	CourseFile     string  `json:"course_file"`
	DownloadURL    string  `json:"download_url"`
	QualityScore   float64 `json:"quality_score,omitempty"`
}

// TaskUpdate is a partial update merged into a task record by the store.
// Nil fields are left untouched.
type TaskUpdate struct {
	Status   *TaskStatus
	Progress *int
	Message  *string
	Error    *string
	Result   *TaskResult
}
