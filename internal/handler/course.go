package handler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/coursebuilder/api/internal/model"
	"github.com/coursebuilder/api/internal/store"
	"github.com/coursebuilder/api/internal/worker"
	"github.com/coursebuilder/api/pkg/response"
)

// CourseHandler exposes job submission, status polling and download of
// generated course documents. It holds no business logic beyond input
// validation and delegation to the store and the runner.
type CourseHandler struct {
	store        *store.TaskStore
	runner       *worker.Runner
	validator    *validator.Validate
	uploadDir    string
	outputDir    string
	chunkMinutes int
}

func NewCourseHandler(s *store.TaskStore, r *worker.Runner, v *validator.Validate, uploadDir, outputDir string, chunkMinutes int) *CourseHandler {
	return &CourseHandler{
		store:        s,
		runner:       r,
		validator:    v,
		uploadDir:    uploadDir,
		outputDir:    outputDir,
		chunkMinutes: chunkMinutes,
	}
}

// ProcessYouTube handles POST /process-youtube
// @Summary      Submit a YouTube course-generation job
// @Description  Start an asynchronous pipeline: download audio, transcribe, compose a French course
// @Tags         Course
// @Accept       json
// @Produce      json
// @Param        request body model.ProcessYouTubeRequest true "YouTube job request"
// @Success      202 {object} model.SubmitResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /process-youtube [post]
func (h *CourseHandler) ProcessYouTube(c *fiber.Ctx) error {
	var req model.ProcessYouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return response.ValidationError(c, "YouTube URL is required", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}
	if !IsValidYouTubeURL(req.URL) {
		return response.ValidationError(c, "Invalid YouTube URL", nil)
	}
	if req.ChunkMinutes == 0 {
		req.ChunkMinutes = h.chunkMinutes
	}

	task := h.store.Create(model.TaskTypeYouTube)
	h.runner.LaunchYouTube(task.ID, req.URL, req.ChunkMinutes)

	return response.Accepted(c, model.SubmitResponse{
		TaskID:    task.ID,
		Message:   "Processing started",
		StatusURL: "/status/" + task.ID,
	})
}

// ProcessLocal handles POST /process-local
// @Summary      Submit an uploaded transcript for course generation
// @Description  Compose a French course from an uploaded Markdown transcript
// @Tags         Course
// @Accept       multipart/form-data
// @Produce      json
// @Param        transcript_file formData file   true  "Transcript (.md)"
// @Param        output_filename formData string false "Output filename (default course.md)"
// @Success      202 {object} model.SubmitResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /process-local [post]
func (h *CourseHandler) ProcessLocal(c *fiber.Ctx) error {
	file, err := c.FormFile("transcript_file")
	if err != nil {
		return response.ValidationError(c, "No transcript file uploaded", nil)
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".md") {
		return response.ValidationError(c, "Transcript file must be a Markdown (.md) file", nil)
	}

	outputName := strings.TrimSpace(c.FormValue("output_filename"))
	if outputName == "" {
		outputName = "course.md"
	}
	if !strings.HasSuffix(outputName, ".md") {
		outputName += ".md"
	}
	outputName = SanitizeFilename(outputName)
	if outputName == "" || outputName == ".md" {
		return response.ValidationError(c, "Invalid output filename", nil)
	}

	task := h.store.Create(model.TaskTypeLocal)

	uploadPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", task.ID, SanitizeFilename(file.Filename)))
	if err := c.SaveFile(file, uploadPath); err != nil {
		h.store.Fail(task.ID, "failed to store uploaded transcript: "+err.Error())
		return response.ServiceError(c, "Failed to store uploaded file")
	}

	h.runner.LaunchLocal(task.ID, uploadPath, outputName)

	return response.Accepted(c, model.SubmitResponse{
		TaskID:    task.ID,
		Message:   "Processing started",
		StatusURL: "/status/" + task.ID,
	})
}

// Status handles GET /status/:taskId
// @Summary      Poll task status
// @Description  Report status, progress, message and result of a task
// @Tags         Course
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} model.Task
// @Failure      404 {object} response.ErrorResponse
// @Router       /status/{taskId} [get]
func (h *CourseHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	task, ok := h.store.Get(taskID)
	if !ok {
		// also the answer for identifiers issued before a restart:
		// task state is memory-only
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, task)
}

// Download handles GET /download/:filename
// @Summary      Download a generated course document
// @Tags         Course
// @Produce      text/markdown
// @Param        filename path string true "Course filename"
// @Success      200 {file} file
// @Failure      404 {object} response.ErrorResponse
// @Router       /download/{filename} [get]
func (h *CourseHandler) Download(c *fiber.Ctx) error {
	filename, err := safeFilenameParam(c.Params("filename"))
	if err != nil {
		return response.ValidationError(c, "Invalid filename", nil)
	}

	path := filepath.Join(h.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		return response.NotFound(c, "File not found")
	}

	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.Download(path, filename)
}

// Tasks handles GET /tasks — a debug listing of all task records.
func (h *CourseHandler) Tasks(c *fiber.Ctx) error {
	return response.OK(c, h.store.List())
}
