package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-bot/internal/bot"
)

const maxUpdateSize = 1 << 20

type updateHandler interface {
	Handle(ctx context.Context, update bot.Update) bot.Reply
}

type replySender interface {
	Deliver(ctx context.Context, reply bot.Reply) error
}

// WebhookHandler accepts updates pushed by the chat platform.
type WebhookHandler struct {
	logger  *slog.Logger
	updates updateHandler
	sender  replySender
}

func NewWebhookHandler(logger *slog.Logger, updates updateHandler, sender replySender) *WebhookHandler {
	return &WebhookHandler{
		logger:  logger.With("component", "webhook"),
		updates: updates,
		sender:  sender,
	}
}

// ServeHTTP acknowledges every well-formed update, even when delivery of the
// reply fails, so the platform does not push it again.
func (that *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	var update bot.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&update); err != nil {
		log.Warn("failed to decode update", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	if update.SessionKey == "" {
		if update.ChatID == 0 {
			http.Error(w, "session_key or chat_id is required", http.StatusBadRequest)
			return
		}
		update.SessionKey = strconv.FormatInt(update.ChatID, 10)
	}

	reply := that.updates.Handle(r.Context(), update)

	if err := that.sender.Deliver(r.Context(), reply); err != nil {
		log.Error("failed to deliver reply", "session", update.SessionKey, "error", err)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
