package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/busycorner/panel/internal/bus"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/go-chi/chi/v5"
)

// Message is a customer contact message read from the shared store.
// Another surface writes these; the admin panel only reads and marks
// them.
type Message struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// MessageHandler serves the admin contact message inbox.
type MessageHandler struct {
	store  kvstore.Store
	notify Notifier
}

// Notifier raises a broadcast signal after a store write completes.
// Satisfied by *bus.Bus.
type Notifier interface {
	Publish(ev bus.Event)
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(store kvstore.Store, notify Notifier) *MessageHandler {
	return &MessageHandler{store: store, notify: notify}
}

// RegisterAdminRoutes registers the admin inbox endpoints.
func (h *MessageHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/read", h.MarkRead)
}

// List returns all contact messages, unread first, newest first within
// each group.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages := h.load(r.Context())

	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Read != messages[j].Read {
			return !messages[i].Read
		}
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})

	unread := 0
	for _, m := range messages {
		if !m.Read {
			unread++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
		"unread":   unread,
	})
}

// MarkRead handles PATCH /messages/{id}/read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message ID"})
		return
	}

	messages := h.load(r.Context())
	for i := range messages {
		if messages[i].ID != id {
			continue
		}
		messages[i].Read = true
		if err := kvstore.SetJSON(r.Context(), h.store, kvstore.KeyContactMessages, messages); err != nil {
			log.Printf("ERROR: save contact messages: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		h.notify.Publish(bus.MessagesUpdated)
		writeJSON(w, http.StatusOK, messages[i])
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
}

func (h *MessageHandler) load(ctx context.Context) []Message {
	var messages []Message
	if err := kvstore.GetJSON(ctx, h.store, kvstore.KeyContactMessages, &messages); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("ERROR: read contact messages: %v", err)
		}
		return nil
	}
	return messages
}
