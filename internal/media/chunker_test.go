package media

import (
	"testing"
	"time"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name  string
		total time.Duration
		chunk time.Duration
		want  int
	}{
		{"even split", 30 * time.Minute, 10 * time.Minute, 3},
		{"ragged tail", 25 * time.Minute, 10 * time.Minute, 3},
		{"shorter than one chunk", 4 * time.Minute, 10 * time.Minute, 1},
		{"exactly one chunk", 10 * time.Minute, 10 * time.Minute, 1},
		{"zero total", 0, 10 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := PlanChunks(tt.total, tt.chunk)
			if len(windows) != tt.want {
				t.Fatalf("got %d windows, want %d", len(windows), tt.want)
			}

			// ordered, contiguous, covering [0, total)
			var cursor time.Duration
			for i, w := range windows {
				if w.Index != i {
					t.Errorf("window %d has index %d", i, w.Index)
				}
				if w.Start != cursor {
					t.Errorf("window %d starts at %v, want %v", i, w.Start, cursor)
				}
				if w.End <= w.Start {
					t.Errorf("window %d is empty or inverted: %v → %v", i, w.Start, w.End)
				}
				if w.End-w.Start > tt.chunk {
					t.Errorf("window %d longer than chunk: %v", i, w.End-w.Start)
				}
				cursor = w.End
			}
			if len(windows) > 0 && cursor != tt.total {
				t.Errorf("windows end at %v, want %v", cursor, tt.total)
			}
		})
	}
}

func TestChunkWindowLabel(t *testing.T) {
	w := ChunkWindow{Index: 2, Start: 20 * time.Minute, End: 30 * time.Minute}
	want := "Chunk 3 [00:20:00 → 00:30:00]"
	if got := w.Label(); got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}
}

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 25*time.Minute + 9*time.Second, "03:25:09"},
	}
	for _, tt := range tests {
		if got := FormatHMS(tt.d); got != tt.want {
			t.Errorf("FormatHMS(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
