// Package media wraps the external yt-dlp and ffmpeg binaries used for
// audio acquisition and chunking. Both are consumed strictly through their
// command-line interfaces.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/coursebuilder/api/internal/model"
)

// Downloader fetches YouTube audio as MP3 via the yt-dlp binary.
type Downloader struct {
	binary      string
	cookiesFile string
	cacheDir    string
}

func NewDownloader(binary, cookiesFile, cacheDir string) *Downloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Downloader{
		binary:      binary,
		cookiesFile: cookiesFile,
		cacheDir:    cacheDir,
	}
}

// Fetch downloads the video's audio track into a fresh session directory
// under the cache dir and returns the resulting MP3 path.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	sessionDir := filepath.Join(d.cacheDir, uuid.New().String())
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", model.NewPipelineError(model.StageAcquisition, fmt.Errorf("create session dir: %w", err))
	}

	args := []string{
		"--format", "bestaudio/best",
		"--no-playlist",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--paths", "home:" + sessionDir,
		"--output", "%(id)s.%(ext)s",
		"--user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	}
	if d.cookiesFile != "" {
		args = append(args, "--cookies", d.cookiesFile)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, d.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", model.NewPipelineError(model.StageAcquisition,
			fmt.Errorf("yt-dlp failed: %v: %s", err, tail(string(output), 500)))
	}

	mp3, err := newestMP3(sessionDir)
	if err != nil {
		return "", model.NewPipelineError(model.StageAcquisition, err)
	}
	return mp3, nil
}

// newestMP3 returns the most recently modified .mp3 in dir. yt-dlp names
// the file after the video id, which we do not know up front.
func newestMP3(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read session dir: %w", err)
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("download finished but no MP3 found in %s", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		fi, _ := os.Stat(candidates[i])
		fj, _ := os.Stat(candidates[j])
		if fi == nil || fj == nil {
			return false
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return candidates[0], nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
