// Package layout partitions the heatmap width into per-frequency-bin cells.
package layout

import (
	"errors"
	"math"
	"unicode/utf8"

	"github.com/RMahshie/sdrwatch/pkg/models"
)

var (
	// ErrZeroBandwidth is returned when the task has no bin width
	ErrZeroBandwidth = errors.New("layout: task bandwidth is zero")
	// ErrEmptyRange is returned when the task yields no bins
	ErrEmptyRange = errors.New("layout: task frequency range holds no bins")
)

// Grid is the column geometry shared by every node row
type Grid struct {
	BinCount     float64 `json:"bin_count"`
	LabelWidthPx float64 `json:"label_width_px"`
	BinWidthPx   float64 `json:"bin_width_px"`
}

// BinCount returns how many bins of the task's bandwidth fit its range
func BinCount(task models.FrequencyTask) (float64, error) {
	if task.BandwidthMhz == 0 {
		return 0, ErrZeroBandwidth
	}
	count := (task.EndMhz - task.StartMhz) / task.BandwidthMhz
	if count <= 0 || math.IsNaN(count) || math.IsInf(count, 0) {
		return 0, ErrEmptyRange
	}
	return count, nil
}

// Compute divides the width left of the label column evenly between bins
func Compute(containerWidthPx, labelColumnWidthPx float64, task models.FrequencyTask) (Grid, error) {
	count, err := BinCount(task)
	if err != nil {
		return Grid{}, err
	}
	available := containerWidthPx - labelColumnWidthPx
	return Grid{
		BinCount:     count,
		LabelWidthPx: labelColumnWidthPx,
		BinWidthPx:   available / count,
	}, nil
}

// LabelColumnWidth is the width of the widest label plus fixed padding.
// Labels are measured as runes times a fixed character width.
func LabelColumnWidth(labels []string, charWidthPx, paddingPx float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	widest := 0
	for _, l := range labels {
		if n := utf8.RuneCountInString(l); n > widest {
			widest = n
		}
	}
	return float64(widest)*charWidthPx + paddingPx
}
