package dashboard

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/sdrwatch/internal/dialog"
	"github.com/RMahshie/sdrwatch/internal/layout"
	"github.com/RMahshie/sdrwatch/internal/noise"
	"github.com/RMahshie/sdrwatch/internal/poller"
	"github.com/RMahshie/sdrwatch/internal/validation"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// stubCollector serves a mutable snapshot and records tasking calls
type stubCollector struct {
	mock.Mock
	mu       sync.Mutex
	snap     models.Snapshot
	fetchErr error
}

func (s *stubCollector) FetchData(ctx context.Context) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return models.Snapshot{}, s.fetchErr
	}
	return s.snap, nil
}

func (s *stubCollector) Tasking(ctx context.Context, task models.FrequencyTask) error {
	args := s.Called(ctx, task)
	if args.Error(0) == nil {
		s.mu.Lock()
		s.snap.Task = task
		s.mu.Unlock()
	}
	return args.Error(0)
}

var testConfig = Config{ContainerWidthPx: 1280, LabelCharWidthPx: 9, LabelPaddingPx: 24}

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		Task: models.FrequencyTask{StartMhz: 100, EndMhz: 130, BandwidthMhz: 10},
		Nodes: []models.NodeReading{
			{
				Address:   "http://10.0.0.5:8080",
				Latitude:  51.5,
				Longitude: -0.12,
				Timestamp: "2025-06-01T12:00:00",
				Samples: []models.FrequencyNoise{
					{FrequencyMhz: 125, NoiseDbm: -101.5},
					{FrequencyMhz: 105, NoiseDbm: -150},
					{FrequencyMhz: 115, NoiseDbm: -160},
				},
			},
			{Address: "10.0.0.6", Samples: []models.FrequencyNoise{}},
		},
	}
}

func setup(t *testing.T, snap models.Snapshot) (*Dashboard, *poller.Poller, *stubCollector) {
	t.Helper()
	collector := &stubCollector{snap: snap}
	p := poller.New(collector, poller.Config{}, nil)
	d := New(p, testConfig)
	t.Cleanup(d.Close)
	return d, p, collector
}

func TestView_BeforeFirstSnapshot(t *testing.T) {
	d, _, _ := setup(t, sampleSnapshot())

	view := d.View(800)
	assert.False(t, view.Ready)
	assert.Empty(t, view.Rows)
	assert.Empty(t, view.LayoutError)
	assert.True(t, d.DisplayedTask().IsZero())
}

func TestView_RendersSnapshot(t *testing.T) {
	d, p, _ := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	view := d.View(0)
	require.True(t, view.Ready)
	assert.Equal(t, sampleSnapshot().Task, view.Task)
	assert.Empty(t, view.LayoutError)

	labelWidth := 20*9.0 + 24
	assert.Equal(t, layout.Grid{BinCount: 3, LabelWidthPx: labelWidth, BinWidthPx: (1280 - labelWidth) / 3}, view.Grid)

	require.Len(t, view.Rows, 2)
	row := view.Rows[0]
	assert.Equal(t, "http://10.0.0.5:8080", row.Address)
	assert.Equal(t, 51.5, row.Latitude)
	assert.Equal(t, "2025-06-01T12:00:00", row.Timestamp)

	// floor for 10 MHz is -164 dBm
	require.Len(t, row.Cells, 3)
	assert.Equal(t, Cell{
		FrequencyMhz: 125,
		NoiseDbm:     -101.5,
		Severity:     noise.High,
		Color:        "red",
		WidthPx:      view.Grid.BinWidthPx,
		Hover:        "120 - 130 MHz : -101.5 dBm",
	}, row.Cells[0])
	assert.Equal(t, noise.Medium, row.Cells[1].Severity)
	assert.Equal(t, noise.Low, row.Cells[2].Severity)
	assert.False(t, row.Cells[2].Fallback)

	assert.Empty(t, view.Rows[1].Cells)
}

func TestView_ResizeChangesBinWidth(t *testing.T) {
	d, p, _ := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	narrow := d.View(600)
	wide := d.View(1800)
	assert.Equal(t, narrow.Grid.LabelWidthPx, wide.Grid.LabelWidthPx)
	assert.Less(t, narrow.Grid.BinWidthPx, wide.Grid.BinWidthPx)
	assert.InDelta(t, 1800-wide.Grid.LabelWidthPx, wide.Grid.BinWidthPx*wide.Grid.BinCount, 1e-9)
}

func TestView_ZeroBandwidthFallsBack(t *testing.T) {
	snap := sampleSnapshot()
	snap.Task.BandwidthMhz = 0
	snap.Nodes[0].Samples = []models.FrequencyNoise{{FrequencyMhz: 105, NoiseDbm: -95}, {FrequencyMhz: 115, NoiseDbm: -101.5}}
	d, p, _ := setup(t, snap)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	view := d.View(1280)
	assert.True(t, view.Ready)
	assert.Equal(t, layout.ErrZeroBandwidth.Error(), view.LayoutError)

	cells := view.Rows[0].Cells
	require.Len(t, cells, 2)
	for _, c := range cells {
		assert.True(t, c.Fallback)
		assert.Zero(t, c.WidthPx)
	}
	assert.Equal(t, noise.High, cells[0].Severity)
	assert.Equal(t, noise.Medium, cells[1].Severity)
}

func TestDisplayedTask_FollowsSnapshots(t *testing.T) {
	d, p, collector := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	local := models.FrequencyTask{StartMhz: 1, EndMhz: 11, BandwidthMhz: 1}
	d.SetDisplayedTask(local)
	assert.Equal(t, local, d.View(0).Task)

	collector.mu.Lock()
	collector.snap.Task = models.FrequencyTask{StartMhz: 900, EndMhz: 1000, BandwidthMhz: 20}
	collector.mu.Unlock()

	_, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyTask{StartMhz: 900, EndMhz: 1000, BandwidthMhz: 20}, d.DisplayedTask())
}

func TestTasking_EndToEnd(t *testing.T) {
	d, p, collector := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	want := models.FrequencyTask{StartMhz: 10, EndMhz: 110, BandwidthMhz: 10}
	collector.On("Tasking", mock.Anything, want).Return(nil).Once()

	tc := dialog.NewTaskConfigurator(collector, d, p, time.Second, nil)
	view := tc.Show()
	assert.Equal(t, "100", view.Values[validation.FieldStartMhz])

	for field, value := range map[string]string{
		validation.FieldStartMhz:     "10",
		validation.FieldEndMhz:       "110",
		validation.FieldBandwidthMhz: "10",
	} {
		_, err := tc.Change(field, value)
		require.NoError(t, err)
	}

	res, err := tc.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	assert.False(t, tc.View().Visible)
	assert.Equal(t, want, d.DisplayedTask())

	rendered := d.View(0)
	assert.Equal(t, want, rendered.Task)
	assert.Equal(t, float64(10), rendered.Grid.BinCount)
	collector.AssertExpectations(t)
}

func TestView_LayoutFollowsSnapshotWhenRefreshFails(t *testing.T) {
	d, p, collector := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	want := models.FrequencyTask{StartMhz: 10, EndMhz: 1010, BandwidthMhz: 20}
	collector.On("Tasking", mock.Anything, want).Return(nil).Once()
	collector.mu.Lock()
	collector.fetchErr = errors.New("collector unreachable")
	collector.mu.Unlock()

	tc := dialog.NewTaskConfigurator(collector, d, p, time.Second, nil)
	tc.Show()
	for field, value := range map[string]string{
		validation.FieldStartMhz:     "10",
		validation.FieldEndMhz:       "1010",
		validation.FieldBandwidthMhz: "20",
	} {
		_, err := tc.Change(field, value)
		require.NoError(t, err)
	}
	res, err := tc.Submit(context.Background())
	require.NoError(t, err)
	require.True(t, res.Submitted)

	// the failed refresh leaves the old samples live
	assert.Equal(t, sampleSnapshot().Task, p.Snapshot().Task)

	view := d.View(1280)
	assert.Equal(t, want, view.Task)
	assert.Equal(t, float64(3), view.Grid.BinCount)
	cells := view.Rows[0].Cells
	require.Len(t, cells, 3)
	assert.Equal(t, "120 - 130 MHz : -101.5 dBm", cells[0].Hover)
	assert.Equal(t, noise.High, cells[0].Severity)
	assert.InDelta(t, 1280-view.Grid.LabelWidthPx, cells[0].WidthPx*view.Grid.BinCount, 1e-9)
	collector.AssertExpectations(t)
}

func TestView_NonFiniteWidthUsesDefault(t *testing.T) {
	d, p, _ := setup(t, sampleSnapshot())
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	want := d.View(0).Grid
	for _, width := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -5} {
		got := d.View(width).Grid
		assert.Equal(t, want, got, "width %v", width)
		assert.False(t, math.IsNaN(got.BinWidthPx))
	}
}

func TestHover(t *testing.T) {
	assert.Equal(t, "99.5 - 100.5 MHz : -120 dBm", Hover(models.FrequencyNoise{FrequencyMhz: 100, NoiseDbm: -120}, 1))
}
