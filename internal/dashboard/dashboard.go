// Package dashboard composes the live snapshot, the grid layout and the noise
// classifier into a renderable heatmap view.
package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/layout"
	"github.com/RMahshie/sdrwatch/internal/noise"
	"github.com/RMahshie/sdrwatch/internal/poller"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// Source provides the live snapshot
type Source interface {
	Snapshot() models.Snapshot
	HasSnapshot() bool
	Subscribe(fn poller.Subscriber) (unsubscribe func())
}

// Config holds rendering settings
type Config struct {
	ContainerWidthPx float64
	LabelCharWidthPx float64
	LabelPaddingPx   float64
}

// Cell is one rendered frequency bin
type Cell struct {
	FrequencyMhz float64        `json:"frequency_mhz"`
	NoiseDbm     float64        `json:"noise_dbm"`
	Severity     noise.Severity `json:"severity" doc:"low, medium, high or unclassified"`
	Color        string         `json:"color"`
	Fallback     bool           `json:"fallback" doc:"Classified against fixed thresholds because the bandwidth was unusable"`
	WidthPx      float64        `json:"width_px"`
	Hover        string         `json:"hover"`
}

// Row is one node's line of the heatmap
type Row struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
	Cells     []Cell  `json:"cells"`
}

// View is the rendered heatmap
type View struct {
	Ready       bool                 `json:"ready" doc:"False until the first snapshot arrives"`
	Task        models.FrequencyTask `json:"task" doc:"Displayed task range"`
	Grid        layout.Grid          `json:"grid"`
	LayoutError string               `json:"layout_error,omitempty"`
	Rows        []Row                `json:"rows"`
	FetchedAt   time.Time            `json:"fetched_at"`
}

// Dashboard owns the displayed task and renders views from the live snapshot
type Dashboard struct {
	source Source
	cfg    Config

	mu   sync.RWMutex
	task models.FrequencyTask

	unsubscribe func()
}

// New creates a dashboard that follows source
func New(source Source, cfg Config) *Dashboard {
	d := &Dashboard{source: source, cfg: cfg}
	if source.HasSnapshot() {
		d.task = source.Snapshot().Task
	}
	d.unsubscribe = source.Subscribe(d.apply)
	return d
}

func (d *Dashboard) apply(snap models.Snapshot) {
	d.SetDisplayedTask(snap.Task)
}

// Close stops following the source
func (d *Dashboard) Close() {
	d.unsubscribe()
}

// DisplayedTask returns the task range shown on the dashboard
func (d *Dashboard) DisplayedTask() models.FrequencyTask {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.task
}

// SetDisplayedTask replaces the displayed task range
func (d *Dashboard) SetDisplayedTask(task models.FrequencyTask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.task = task
}

// View renders the heatmap for a container width. A non-positive or non-finite
// width uses the configured default. Cells are laid out and classified against
// the snapshot's own task; the displayed task only labels the view.
func (d *Dashboard) View(containerWidthPx float64) View {
	if containerWidthPx <= 0 || math.IsNaN(containerWidthPx) || math.IsInf(containerWidthPx, 0) {
		containerWidthPx = d.cfg.ContainerWidthPx
	}
	if !d.source.HasSnapshot() {
		return View{Rows: []Row{}}
	}

	snap := d.source.Snapshot()
	view := View{Ready: true, Task: d.DisplayedTask(), FetchedAt: snap.FetchedAt, Rows: make([]Row, 0, len(snap.Nodes))}

	labelWidth := layout.LabelColumnWidth(snap.Addresses(), d.cfg.LabelCharWidthPx, d.cfg.LabelPaddingPx)
	grid, err := layout.Compute(containerWidthPx, labelWidth, snap.Task)
	if err != nil {
		log.Debug().Err(err).Msg("Heatmap layout unavailable")
		view.LayoutError = err.Error()
		grid = layout.Grid{LabelWidthPx: labelWidth}
	}
	view.Grid = grid

	for _, node := range snap.Nodes {
		row := Row{
			Address:   node.Address,
			Latitude:  node.Latitude,
			Longitude: node.Longitude,
			Timestamp: node.Timestamp,
			Cells:     make([]Cell, 0, len(node.Samples)),
		}
		for _, s := range node.Samples {
			row.Cells = append(row.Cells, cell(s, snap.Task.BandwidthMhz, grid.BinWidthPx))
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func cell(s models.FrequencyNoise, bandwidthMhz, widthPx float64) Cell {
	sev := noise.Classify(s.NoiseDbm, bandwidthMhz)
	fallback := sev == noise.Unclassified
	if fallback {
		sev = noise.Fallback(s.NoiseDbm)
	}
	return Cell{
		FrequencyMhz: s.FrequencyMhz,
		NoiseDbm:     s.NoiseDbm,
		Severity:     sev,
		Color:        sev.Color(),
		Fallback:     fallback,
		WidthPx:      widthPx,
		Hover:        Hover(s, bandwidthMhz),
	}
}

// Hover is the tooltip of a bin: its frequency span and measured noise
func Hover(s models.FrequencyNoise, bandwidthMhz float64) string {
	half := bandwidthMhz / 2
	return fmt.Sprintf("%s - %s MHz : %s dBm",
		formatNumber(s.FrequencyMhz-half), formatNumber(s.FrequencyMhz+half), formatNumber(s.NoiseDbm))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
