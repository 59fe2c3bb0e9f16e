package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/dialog"
)

// NodeRemover deregisters nodes
type NodeRemover interface {
	Remove(ctx context.Context, address string) error
}

// DialogHandler drives the configuration dialogs and node removal
type DialogHandler struct {
	dialogs map[string]dialog.Dialog
	remover NodeRemover
}

// NewDialogHandler creates a new dialog handler serving dialogs by name
func NewDialogHandler(remover NodeRemover, dialogs ...dialog.Dialog) *DialogHandler {
	byName := make(map[string]dialog.Dialog, len(dialogs))
	for _, d := range dialogs {
		byName[d.Name()] = d
	}
	return &DialogHandler{dialogs: byName, remover: remover}
}

func (h *DialogHandler) lookup(form string) (dialog.Dialog, error) {
	d, ok := h.dialogs[form]
	if !ok {
		return nil, huma.Error404NotFound("Dialog not found")
	}
	return d, nil
}

// GetDialog returns a dialog's state
func (h *DialogHandler) GetDialog(ctx context.Context, req *DialogRequest) (*DialogResponse, error) {
	d, err := h.lookup(req.Form)
	if err != nil {
		return nil, err
	}
	return &DialogResponse{Body: d.View()}, nil
}

// OpenDialog shows a dialog with fresh inputs
func (h *DialogHandler) OpenDialog(ctx context.Context, req *DialogRequest) (*DialogResponse, error) {
	d, err := h.lookup(req.Form)
	if err != nil {
		return nil, err
	}
	log.Info().Str("form", req.Form).Msg("Opening dialog")
	return &DialogResponse{Body: d.Show()}, nil
}

// ChangeField edits one field of an open dialog
func (h *DialogHandler) ChangeField(ctx context.Context, req *ChangeFieldRequest) (*DialogResponse, error) {
	d, err := h.lookup(req.Form)
	if err != nil {
		return nil, err
	}

	view, err := d.Change(req.Body.Field, req.Body.Value)
	switch {
	case errors.Is(err, dialog.ErrNotOpen):
		return nil, huma.Error409Conflict("Dialog is not open", err)
	case errors.Is(err, dialog.ErrUnknownField):
		return nil, huma.Error400BadRequest("Unknown field "+req.Body.Field, err)
	case err != nil:
		return nil, huma.Error500InternalServerError("Failed to update field", err)
	}
	return &DialogResponse{Body: view}, nil
}

// SubmitDialog validates a dialog and sends it when valid
func (h *DialogHandler) SubmitDialog(ctx context.Context, req *DialogRequest) (*SubmitResponse, error) {
	d, err := h.lookup(req.Form)
	if err != nil {
		return nil, err
	}

	result, err := d.Submit(ctx)
	if errors.Is(err, dialog.ErrNotOpen) {
		return nil, huma.Error409Conflict("Dialog is not open", err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to submit dialog", err)
	}

	log.Info().Str("form", req.Form).Bool("submitted", result.Submitted).
		Str("status", result.View.Status.String()).Msg("Dialog submit handled")
	return &SubmitResponse{Body: result}, nil
}

// CloseDialog hides a dialog
func (h *DialogHandler) CloseDialog(ctx context.Context, req *DialogRequest) (*DialogResponse, error) {
	d, err := h.lookup(req.Form)
	if err != nil {
		return nil, err
	}
	return &DialogResponse{Body: d.Close()}, nil
}

// RemoveNode deregisters a node from the collector
func (h *DialogHandler) RemoveNode(ctx context.Context, req *RemoveNodeRequest) (*RemoveNodeResponse, error) {
	err := h.remover.Remove(ctx, req.Body.Address)
	if errors.Is(err, dialog.ErrNoAddress) {
		return nil, huma.Error400BadRequest("Node address is required", err)
	}
	if err != nil {
		return nil, huma.Error502BadGateway("Collector rejected the removal", err)
	}

	resp := &RemoveNodeResponse{}
	resp.Body.Address = req.Body.Address
	resp.Body.Removed = true
	return resp, nil
}
