package model

// ProcessYouTubeRequest is the body of POST /process-youtube.
type ProcessYouTubeRequest struct {
	URL          string `json:"url" validate:"required,url"`
	ChunkMinutes int    `json:"chunk_minutes" validate:"omitempty,min=1,max=60"`
}

// ProcessLocalRequest captures the multipart fields of POST /process-local.
// The transcript file itself is read from the form directly.
type ProcessLocalRequest struct {
	OutputFilename string `form:"output_filename"`
}

// SubmitResponse is returned on successful job submission.
type SubmitResponse struct {
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}
