package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/dashwall/dashwall/internal/grid"
	"github.com/dashwall/dashwall/internal/models"
	"github.com/dashwall/dashwall/pkg/backend"
)

// ConnectRequest is the request body for pairing a dashboard locally
type ConnectRequest struct {
	Token string `json:"token"`
}

// AssetLoadedRequest is posted by the wall page when an external script
// finished loading
type AssetLoadedRequest struct {
	Token string `json:"token"`
}

// LayoutRequest is the full grid snapshot submitted after a drag or
// resize on the wall
type LayoutRequest struct {
	Items grid.Layout `json:"items"`
}

// PairingPayload is the content encoded into the pairing QR code
type PairingPayload struct {
	ScreenCode int `json:"screen_code"`
}

func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Rotation.Status())
}

func (h *Handlers) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Token == "" {
		respondError(w, BadRequest("Missing dashboard token"))
		return
	}

	h.Rotation.Connect(r.Context(), req.Token)

	status := h.Rotation.Status()
	if status.Token != req.Token {
		respondError(w, Unavailable("Failed to load dashboard"))
		return
	}
	respondOK(w, status)
}

func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.Rotation.Refresh(r.Context())
	respondOK(w, h.Rotation.Status())
}

func (h *Handlers) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.Rotation.Disconnect(r.Context())
	respondSuccess(w, "Screen disconnected")
}

func (h *Handlers) handlePairingQR(w http.ResponseWriter, r *http.Request) {
	payload, err := json.Marshal(PairingPayload{ScreenCode: h.Rotation.ScreenCode()})
	if err != nil {
		respondError(w, InternalError())
		return
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		respondError(w, InternalError())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Sessions.ListSessions(r.Context(), 50)
	if err != nil {
		respondError(w, InternalError())
		return
	}
	if sessions == nil {
		sessions = []models.PairingSession{}
	}
	respondOK(w, sessions)
}

// handleLayout accepts a layout edit from the wall. The screen
// controller decides whether anything actually moved; unmoved layouts
// succeed without a backend call.
func (h *Handlers) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, BadRequest("Empty layout"))
		return
	}

	if err := h.Screen.ApplyLayout(r.Context(), req.Items); err != nil {
		respondError(w, Unavailable("Failed to submit widget positions"))
		return
	}
	respondSuccess(w, "Layout submitted")
}

// handleWidget serves one widget definition through the TTL cache
func (h *Handlers) handleWidget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "widgetID"))
	if err != nil {
		respondError(w, BadRequest("Invalid widget id"))
		return
	}

	widget, err := h.Definitions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			respondError(w, NotFound("Widget not found"))
			return
		}
		respondError(w, Unavailable("Failed to fetch widget definition"))
		return
	}
	respondOK(w, widget)
}

func (h *Handlers) handleAssetLoaded(w http.ResponseWriter, r *http.Request) {
	var req AssetLoadedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Token == "" {
		respondError(w, BadRequest("Missing script token"))
		return
	}

	h.Loader.MarkScriptAsLoaded(req.Token)
	respondOK(w, map[string]any{
		"ready":  h.Loader.Ready(),
		"loaded": h.Loader.LoadedCount(),
	})
}
