package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/coursebuilder/api/internal/handler"
	"github.com/coursebuilder/api/internal/service"
	"github.com/coursebuilder/api/internal/store"
	"github.com/coursebuilder/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.TaskStore
}

// setupApp creates a Fiber app identical to main.go but with an
// unconfigured OpenAI client. This triggers mock/fallback responses in
// the transcription and composition services, so pipelines run offline.
// The YouTube route is not wired through yt-dlp here; a stub fetcher
// stands in for the download stage.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cacheDir := t.TempDir()
	uploadDir := t.TempDir()
	outputDir := t.TempDir()

	validate := validator.New()

	// nil speech/chat clients → mock transcription and mock course
	transcriptionService := service.NewTranscriptionService(nil, nil)
	courseService := service.NewCourseService(nil)

	taskStore := store.NewTaskStore()
	runner := worker.NewRunner(taskStore, stubFetcher{}, transcriptionService, courseService, cacheDir, outputDir)
	courseHandler := handler.NewCourseHandler(taskStore, runner, validate, uploadDir, outputDir, 10)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"openai": false,
			},
			"tasks": taskStore.Len(),
		})
	})

	app.Post("/process-youtube", courseHandler.ProcessYouTube)
	app.Post("/process-local", courseHandler.ProcessLocal)
	app.Get("/status/:taskId", courseHandler.Status)
	app.Get("/download/:filename", courseHandler.Download)
	app.Get("/tasks", courseHandler.Tasks)

	return &testApp{app: app, store: taskStore}
}

// stubFetcher skips the real yt-dlp download; mock transcription never
// reads the audio file anyway.
type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return "stub.mp3", nil
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doUpload performs a multipart transcript upload.
func doUpload(t *testing.T, app *fiber.App, filename, content, outputName string) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("transcript_file", filename)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	if outputName != "" {
		if err := w.WriteField("output_filename", outputName); err != nil {
			t.Fatalf("failed to write output_filename field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest("POST", "/process-local", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// pollUntilTerminal polls /status/:taskId until the task completes or fails.
func pollUntilTerminal(t *testing.T, app *fiber.App, taskID string) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(app, "GET", "/status/"+taskID, "", nil)
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		body := parseJSON(t, resp)
		switch body["status"] {
		case "completed", "failed":
			return body
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return nil
}
