package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
	"github.com/sebakerckhof/ats-bridge/internal/panel"
)

// EntityResponse is the JSON shape of one entity in list and detail reads.
type EntityResponse struct {
	Kind    string    `json:"kind"`
	Number  int       `json:"number"`
	Name    string    `json:"name"`
	Summary string    `json:"summary,omitempty"`
	State   ats.State `json:"state,omitempty"`

	// ForceArm is the area's force-arm preference. Areas only.
	ForceArm *bool `json:"force_arm,omitempty"`
}

// CommandRequest is the JSON body of POST /entities/{kind}/{number}/command.
type CommandRequest struct {
	// Action is the command name: areas accept "arm" and "disarm", zones
	// "inhibit" and "uninhibit", outputs and triggers "on" and "off".
	Action string `json:"action"`

	// Mode selects the arm mode for area arm commands: "full" (default),
	// "part1", or "part2".
	Mode string `json:"mode,omitempty"`

	// Force, when present on an arm command, updates the area's force-arm
	// preference before arming.
	Force *bool `json:"force,omitempty"`
}

// handlePanelInfo returns the connected panel's descriptor.
func (s *Server) handlePanelInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.coord.PanelInfo()
	if info == (ats.PanelInfo{}) {
		writeUnavailable(w, "panel not connected")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleStats returns coordinator statistics.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Stats())
}

// handleListEntities returns all entities of a kind with their current state.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.parseKind(w, r)
	if !ok {
		return
	}

	descriptors := s.coord.Entities(kind)
	entities := make([]EntityResponse, 0, len(descriptors))
	for _, desc := range descriptors {
		entities = append(entities, s.entityResponse(kind, desc))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

// handleGetEntity returns one entity with its current state.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	kind, number, ok := s.parseEntityPath(w, r)
	if !ok {
		return
	}

	for _, desc := range s.coord.Entities(kind) {
		if desc.Number == number {
			writeJSON(w, http.StatusOK, s.entityResponse(kind, desc))
			return
		}
	}
	writeNotFound(w, "unknown "+kind.String())
}

// handleCommand executes a panel command against one entity.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	kind, number, ok := s.parseEntityPath(w, r)
	if !ok {
		return
	}

	var cmd CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if cmd.Action == "" {
		writeBadRequest(w, "action is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := s.executeCommand(ctx, kind, number, cmd); err != nil {
		s.writeCommandError(w, kind, number, cmd.Action, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"kind":   kind.String(),
		"number": number,
		"action": cmd.Action,
	})
}

// executeCommand maps (kind, action) onto a coordinator command.
func (s *Server) executeCommand(ctx context.Context, kind ats.EntityKind, number int, cmd CommandRequest) error {
	switch kind {
	case ats.KindArea:
		switch cmd.Action {
		case "arm":
			mode, err := ats.ParseArmMode(cmd.Mode)
			if err != nil {
				return errBadAction{err.Error()}
			}
			if cmd.Force != nil {
				s.coord.SetForceArm(number, *cmd.Force)
			}
			return s.coord.ArmArea(ctx, number, mode)
		case "disarm":
			return s.coord.DisarmArea(ctx, number)
		}
	case ats.KindZone:
		switch cmd.Action {
		case "inhibit":
			return s.coord.InhibitZone(ctx, number)
		case "uninhibit":
			return s.coord.UninhibitZone(ctx, number)
		}
	case ats.KindOutput:
		switch cmd.Action {
		case "on":
			return s.coord.ActivateOutput(ctx, number)
		case "off":
			return s.coord.DeactivateOutput(ctx, number)
		}
	case ats.KindTrigger:
		switch cmd.Action {
		case "on":
			return s.coord.ActivateTrigger(ctx, number)
		case "off":
			return s.coord.DeactivateTrigger(ctx, number)
		}
	}
	return errBadAction{"unknown action " + strconv.Quote(cmd.Action) + " for " + kind.String()}
}

// errBadAction marks command validation failures that map to 400 rather
// than a panel error status.
type errBadAction struct{ msg string }

func (e errBadAction) Error() string { return e.msg }

// writeCommandError maps a coordinator command error to an HTTP status.
func (s *Server) writeCommandError(w http.ResponseWriter, kind ats.EntityKind, number int, action string, err error) {
	s.logger.Warn("command failed",
		"kind", kind.String(), "number", number, "action", action, "error", err)

	var bad errBadAction
	switch {
	case errors.As(err, &bad):
		writeBadRequest(w, bad.msg)
	case errors.Is(err, panel.ErrNotConnected):
		writeUnavailable(w, "panel not connected")
	case errors.Is(err, ats.ErrUnknownEntity):
		writeNotFound(w, "unknown "+kind.String())
	case errors.Is(err, ats.ErrNotReady):
		writeConflict(w, "area not ready to arm")
	default:
		writeInternalError(w, err.Error())
	}
}

// entityResponse assembles the JSON shape for one entity.
func (s *Server) entityResponse(kind ats.EntityKind, desc ats.Descriptor) EntityResponse {
	resp := EntityResponse{
		Kind:   kind.String(),
		Number: desc.Number,
		Name:   desc.Name,
	}
	if record, ok := s.coord.State(kind, desc.Number); ok {
		resp.Summary = record.Summary()
		resp.State = record
	}
	if kind == ats.KindArea {
		force := s.coord.ForceArm(desc.Number)
		resp.ForceArm = &force
	}
	return resp
}

// parseKind resolves the {kind} path parameter. Writes a 400 on failure.
func (s *Server) parseKind(w http.ResponseWriter, r *http.Request) (ats.EntityKind, bool) {
	kind, err := ats.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return 0, false
	}
	return kind, true
}

// parseEntityPath resolves the {kind} and {number} path parameters.
// Writes a 400 on failure.
func (s *Server) parseEntityPath(w http.ResponseWriter, r *http.Request) (ats.EntityKind, int, bool) {
	kind, ok := s.parseKind(w, r)
	if !ok {
		return 0, 0, false
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		writeBadRequest(w, "entity number must be a positive integer")
		return 0, 0, false
	}
	return kind, number, true
}
