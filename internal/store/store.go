// Package store holds the in-memory task records shared between the HTTP
// surface and the pipeline runner. Records are not persisted anywhere; a
// process restart forgets every task.
package store

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coursebuilder/api/internal/model"
)

// TaskStore is a mutex-guarded map of task records. One instance is
// created in main and injected into both the handlers and the runner.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*model.Task),
	}
}

// Create inserts a queued record under a freshly generated identifier and
// returns a snapshot of it. The identifier is guaranteed not to alias an
// existing record.
func (s *TaskStore) Create(taskType string) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	for _, exists := s.tasks[id]; exists; _, exists = s.tasks[id] {
		id = uuid.New().String()
	}

	now := time.Now()
	task := &model.Task{
		ID:        id,
		Type:      taskType,
		Status:    model.TaskStatusQueued,
		Progress:  0,
		Message:   "Task created",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[id] = task
	return *task
}

// Update merges the non-nil fields of upd into the record. The caller
// (the runner) is trusted: an unknown identifier is logged and ignored.
// Lifecycle invariants are enforced here rather than at every call site:
// terminal records are immutable, progress never decreases, and status
// only moves queued → processing → completed|failed.
func (s *TaskStore) Update(id string, upd model.TaskUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		log.Printf("store: update for unknown task %s dropped", id)
		return
	}
	if task.Status.Terminal() {
		log.Printf("store: update for terminal task %s dropped", id)
		return
	}

	if upd.Status != nil && validTransition(task.Status, *upd.Status) {
		task.Status = *upd.Status
	}
	if upd.Progress != nil && *upd.Progress > task.Progress {
		task.Progress = *upd.Progress
	}
	if upd.Message != nil {
		task.Message = *upd.Message
	}
	if upd.Error != nil {
		task.Error = *upd.Error
	}
	if upd.Result != nil {
		task.Result = upd.Result
	}
	task.UpdatedAt = time.Now()
}

func validTransition(from, to model.TaskStatus) bool {
	switch from {
	case model.TaskStatusQueued:
		return to == model.TaskStatusProcessing || to.Terminal()
	case model.TaskStatusProcessing:
		return to.Terminal()
	default:
		return false
	}
}

// Progress moves a task into processing with the given progress and message.
func (s *TaskStore) Progress(id string, progress int, message string) {
	status := model.TaskStatusProcessing
	s.Update(id, model.TaskUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	})
}

// Fail marks a task failed with a user-facing error message.
func (s *TaskStore) Fail(id, errMsg string) {
	status := model.TaskStatusFailed
	message := "Error: " + errMsg
	s.Update(id, model.TaskUpdate{
		Status:  &status,
		Message: &message,
		Error:   &errMsg,
	})
}

// Complete marks a task completed at 100% with its result descriptor.
func (s *TaskStore) Complete(id string, result model.TaskResult, message string) {
	status := model.TaskStatusCompleted
	progress := 100
	s.Update(id, model.TaskUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
		Result:   &result,
	})
}

// Get returns a snapshot of the record, if present.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *task, true
}

// List returns snapshots of all records, for the debug listing.
func (s *TaskStore) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

// Len returns the number of records.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
