package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ChunkWindow is one fixed-duration slice of the source audio. Boundaries
// are purely time-based, never content-aware.
type ChunkWindow struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Label renders the window the way transcripts reference it,
// e.g. "Chunk 3 [00:20:00 → 00:30:00]".
func (w ChunkWindow) Label() string {
	return fmt.Sprintf("Chunk %d [%s → %s]", w.Index+1, FormatHMS(w.Start), FormatHMS(w.End))
}

// FormatHMS renders a duration as HH:MM:SS.
func FormatHMS(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// PlanChunks splits total into consecutive windows of at most chunk each.
// The windows are ordered, non-overlapping and cover [0, total).
func PlanChunks(total, chunk time.Duration) []ChunkWindow {
	if total <= 0 || chunk <= 0 {
		return nil
	}
	var windows []ChunkWindow
	for start := time.Duration(0); start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}
		windows = append(windows, ChunkWindow{
			Index: len(windows),
			Start: start,
			End:   end,
		})
	}
	return windows
}

// Chunker slices audio files with ffmpeg and measures them with ffprobe.
type Chunker struct {
	ffmpeg  string
	ffprobe string
}

func NewChunker(ffmpeg, ffprobe string) *Chunker {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Chunker{ffmpeg: ffmpeg, ffprobe: ffprobe}
}

// Duration returns the length of the audio file.
func (c *Chunker) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparsable duration %q: %w", string(output), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Slice copies the [start, start+length) window of src into dst without
// re-encoding.
func (c *Chunker) Slice(ctx context.Context, src string, start, length time.Duration, dst string) error {
	cmd := exec.CommandContext(ctx, c.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(start.Seconds(), 'f', 3, 64),
		"-t", strconv.FormatFloat(length.Seconds(), 'f', 3, 64),
		"-i", src,
		"-acodec", "copy",
		"-y", dst,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg slice failed: %v: %s", err, tail(string(output), 300))
	}
	return nil
}
