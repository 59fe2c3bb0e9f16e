package handlers

import (
	"github.com/RMahshie/sdrwatch/internal/dashboard"
	"github.com/RMahshie/sdrwatch/internal/dialog"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// SnapshotResponse carries the live snapshot
type SnapshotResponse struct {
	Body models.Snapshot
}

// GetViewRequest selects the container width to lay the heatmap out for
type GetViewRequest struct {
	Width float64 `query:"width" minimum:"0" doc:"Container width in pixels; 0 uses the configured default"`
}

// ViewResponse carries a rendered heatmap
type ViewResponse struct {
	Body dashboard.View
}

// DialogRequest names a dialog
type DialogRequest struct {
	Form string `path:"form" enum:"node,tasking" doc:"Dialog name"`
}

// ChangeFieldRequest edits one dialog field
type ChangeFieldRequest struct {
	Form string `path:"form" enum:"node,tasking" doc:"Dialog name"`
	Body struct {
		Field string `json:"field" minLength:"1" doc:"Field name"`
		Value string `json:"value" doc:"Raw input"`
	}
}

// DialogResponse carries a dialog's state
type DialogResponse struct {
	Body dialog.View
}

// SubmitResponse carries the outcome of a dialog submission
type SubmitResponse struct {
	Body dialog.Result
}

// RemoveNodeRequest deregisters a node
type RemoveNodeRequest struct {
	Body struct {
		Address string `json:"address" minLength:"1" doc:"Node address as listed in the snapshot"`
	}
}

// RemoveNodeResponse confirms a removal
type RemoveNodeResponse struct {
	Body struct {
		Address string `json:"address"`
		Removed bool   `json:"removed"`
	}
}
