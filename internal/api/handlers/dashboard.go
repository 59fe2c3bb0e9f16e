package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/dashboard"
	"github.com/RMahshie/sdrwatch/internal/poller"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// SnapshotSource is the live snapshot store
type SnapshotSource interface {
	Snapshot() models.Snapshot
	HasSnapshot() bool
	Refresh(ctx context.Context) (models.Snapshot, error)
}

// Viewer renders the heatmap
type Viewer interface {
	View(containerWidthPx float64) dashboard.View
}

// DashboardHandler handles snapshot and view requests
type DashboardHandler struct {
	source SnapshotSource
	viewer Viewer
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(source SnapshotSource, viewer Viewer) *DashboardHandler {
	return &DashboardHandler{source: source, viewer: viewer}
}

// GetSnapshot returns the live snapshot
func (h *DashboardHandler) GetSnapshot(ctx context.Context, _ *struct{}) (*SnapshotResponse, error) {
	if !h.source.HasSnapshot() {
		return nil, huma.Error503ServiceUnavailable("No data received from the collector yet")
	}
	return &SnapshotResponse{Body: h.source.Snapshot()}, nil
}

// Refresh polls the collector now
func (h *DashboardHandler) Refresh(ctx context.Context, _ *struct{}) (*SnapshotResponse, error) {
	log.Info().Msg("On-demand refresh requested")

	snap, err := h.source.Refresh(context.WithoutCancel(ctx))
	if errors.Is(err, poller.ErrStale) {
		return &SnapshotResponse{Body: snap}, nil
	}
	if err != nil {
		return nil, huma.Error502BadGateway("Failed to fetch data from the collector", err)
	}
	return &SnapshotResponse{Body: snap}, nil
}

// GetView renders the heatmap for the requested width
func (h *DashboardHandler) GetView(ctx context.Context, req *GetViewRequest) (*ViewResponse, error) {
	return &ViewResponse{Body: h.viewer.View(req.Width)}, nil
}
