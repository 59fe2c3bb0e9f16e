package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RMahshie/sdrwatch/internal/api/handlers"
)

// Deps are the components the routes are served from
type Deps struct {
	Source   handlers.SnapshotSource
	Viewer   handlers.Viewer
	Dialogs  *handlers.DialogHandler
	Live     http.Handler
	Gatherer prometheus.Gatherer
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(router chi.Router, api huma.API, deps Deps) {
	dashboardHandler := handlers.NewDashboardHandler(deps.Source, deps.Viewer)

	huma.Register(api, huma.Operation{
		OperationID: "getSnapshot",
		Method:      http.MethodGet,
		Path:        "/api/snapshot",
		Summary:     "Get the live snapshot",
		Description: "Returns the task and node readings from the most recent successful poll",
		Tags:        []string{"Dashboard"},
	}, dashboardHandler.GetSnapshot)

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/refresh",
		Summary:     "Refresh now",
		Description: "Polls the collector immediately and returns the applied snapshot",
		Tags:        []string{"Dashboard"},
	}, dashboardHandler.Refresh)

	huma.Register(api, huma.Operation{
		OperationID: "getView",
		Method:      http.MethodGet,
		Path:        "/api/view",
		Summary:     "Get the heatmap view",
		Description: "Lays out and classifies the live snapshot for a container width",
		Tags:        []string{"Dashboard"},
	}, dashboardHandler.GetView)

	huma.Register(api, huma.Operation{
		OperationID: "getDialog",
		Method:      http.MethodGet,
		Path:        "/api/dialogs/{form}",
		Summary:     "Get dialog state",
		Tags:        []string{"Dialogs"},
	}, deps.Dialogs.GetDialog)

	huma.Register(api, huma.Operation{
		OperationID: "openDialog",
		Method:      http.MethodPost,
		Path:        "/api/dialogs/{form}/open",
		Summary:     "Open a dialog",
		Description: "Shows the dialog with fresh inputs; the tasking dialog is seeded with the displayed task",
		Tags:        []string{"Dialogs"},
	}, deps.Dialogs.OpenDialog)

	huma.Register(api, huma.Operation{
		OperationID: "changeDialogField",
		Method:      http.MethodPost,
		Path:        "/api/dialogs/{form}/fields",
		Summary:     "Edit a dialog field",
		Tags:        []string{"Dialogs"},
	}, deps.Dialogs.ChangeField)

	huma.Register(api, huma.Operation{
		OperationID: "submitDialog",
		Method:      http.MethodPost,
		Path:        "/api/dialogs/{form}/submit",
		Summary:     "Submit a dialog",
		Description: "Validates the dialog and sends it to the collector when valid",
		Tags:        []string{"Dialogs"},
	}, deps.Dialogs.SubmitDialog)

	huma.Register(api, huma.Operation{
		OperationID: "closeDialog",
		Method:      http.MethodPost,
		Path:        "/api/dialogs/{form}/close",
		Summary:     "Close a dialog",
		Tags:        []string{"Dialogs"},
	}, deps.Dialogs.CloseDialog)

	huma.Register(api, huma.Operation{
		OperationID: "removeNode",
		Method:      http.MethodPost,
		Path:        "/api/nodes/remove",
		Summary:     "Remove a node",
		Description: "Deregisters a node from the collector and refreshes",
		Tags:        []string{"Nodes"},
	}, deps.Dialogs.RemoveNode)

	router.Handle("/", handlers.NewPageHandler(deps.Viewer))
	if deps.Live != nil {
		router.Handle("/api/live", deps.Live)
	}
	if deps.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
}
