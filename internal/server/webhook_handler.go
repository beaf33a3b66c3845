package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cakebox/storefront/internal/cache"
	"github.com/sirupsen/logrus"
)

// WebhookHandler receives change notifications from the commerce backend and
// flushes the affected cache prefixes so shoppers never see stale pricing.
type WebhookHandler struct {
	secret    string
	snapshots cache.SnapshotCache
	log       *logrus.Logger
}

func NewWebhookHandler(secret string, snapshots cache.SnapshotCache, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, snapshots: snapshots, log: log}
}

type WebhookEventDTO struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
}

func (h *WebhookHandler) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	// No configured secret means no caller can be trusted; an empty
	// header must never match an empty secret.
	if h.secret == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "webhook secret not configured")
		return
	}

	provided := r.Header.Get("x-webhook-secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
		return
	}

	var event WebhookEventDTO
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Catalog changes can move prices and shipping eligibility, so both
	// cached projections go.
	for _, prefix := range []string{cache.CartPrefix, cache.ShippingOptionsPrefix} {
		if err := h.snapshots.FlushPrefix(ctx, prefix); err != nil {
			h.log.WithError(err).WithField("prefix", prefix).Error("cache flush failed")
			respondError(w, http.StatusInternalServerError, "flush_failed", "cache flush failed")
			return
		}
	}

	h.log.WithFields(logrus.Fields{"event": event.Event, "id": event.ID}).Info("flushed caches for catalog update")
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
