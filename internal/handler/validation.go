package handler

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IsValidYouTubeURL accepts watch URLs on youtube.com and short youtu.be
// links; anything else is rejected before a task is created.
func IsValidYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "youtu.be":
		return len(strings.Trim(u.Path, "/")) > 0
	case "youtube.com", "www.youtube.com":
		return strings.HasPrefix(u.Path, "/watch")
	default:
		return false
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename reduces a user-supplied filename to a safe basename.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = name[strings.LastIndex(name, "/")+1:]
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return ""
	}
	return name
}

// safeFilenameParam validates a path parameter used to address a file in
// the output directory.
func safeFilenameParam(raw string) (string, error) {
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", errors.New("unsafe filename")
	}
	if !strings.HasSuffix(name, ".md") {
		return "", errors.New("only markdown downloads are served")
	}
	return name, nil
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return err.Error()
}
