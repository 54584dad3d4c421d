package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Wyydra/ya-signal/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/ya-signal/internal/config"
	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	Signaling *service.SignalingService
	Chat      *service.ChatService
	Relay     *service.RelayService
	Hub       *ws.Hub

	ws  config.WSConfig
	rtc config.RTCConfig
}

func NewHandler(signaling *service.SignalingService, chat *service.ChatService, relay *service.RelayService, hub *ws.Hub, cfg config.Config) *Handler {
	return &Handler{
		Signaling: signaling,
		Chat:      chat,
		Relay:     relay,
		Hub:       hub,
		ws:        cfg.WS,
		rtc:       cfg.RTC,
	}
}

func (h *Handler) NewRouter(staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/presence", h.Presence)
		r.Get("/calls", h.Calls)
		r.Get("/rtc-config", h.RTCConfig)
		r.Get("/messages/{kind}/{chatId}", h.Messages)
	})

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.Hub.Len(),
	})
}

func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Signaling.Registry.Snapshot())
}

func (h *Handler) Calls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Signaling.Calls.Pending())
}

type rtcConfigResponse struct {
	ICEServers         []webrtc.ICEServer `json:"iceServers"`
	BundlePolicy       string             `json:"bundlePolicy"`
	ICETransportPolicy string             `json:"iceTransportPolicy"`
}

func (h *Handler) RTCConfig(w http.ResponseWriter, r *http.Request) {
	servers := h.rtc.ICEServers()
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	writeJSON(w, http.StatusOK, rtcConfigResponse{
		ICEServers:         servers,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle.String(),
		ICETransportPolicy: webrtc.ICETransportPolicyAll.String(),
	})
}

func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	kind := domain.RoomKind(chi.URLParam(r, "kind"))
	chatID := chi.URLParam(r, "chatId")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := h.Chat.History(r.Context(), kind, chatID, limit)
	if err != nil {
		var perr *domain.ProtocolError
		if errors.As(err, &perr) {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		log.Error().Err(err).Str("room_kind", string(kind)).Str("chat_id", chatID).Msg("Failed to load history")
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.ErrorPayload{Message: msg})
}
