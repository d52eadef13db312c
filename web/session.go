package web

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nasermirzaei89/gazette/notify"
)

func init() {
	gob.Register(notify.Message{})
}

const authorNameKey = "authorName"

type SessionValueNotFoundError struct {
	Key string
}

func (err SessionValueNotFoundError) Error() string {
	return fmt.Sprintf("session value for key '%s' not found", err.Key)
}

func (h *Handler) getSessionValue(r *http.Request, key string) (any, error) {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}

	value, ok := session.Values[key]
	if !ok {
		return nil, &SessionValueNotFoundError{Key: key}
	}

	return value, nil
}

func (h *Handler) setSessionValue(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	value any,
) error {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return fmt.Errorf("error getting session: %w", err)
	}

	session.Values[key] = value

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

// rememberedAuthor returns the name the visitor commented with last time, if any.
func (h *Handler) rememberedAuthor(r *http.Request) string {
	value, err := h.getSessionValue(r, authorNameKey)
	if err != nil {
		return ""
	}

	name, _ := value.(string)

	return name
}

func (h *Handler) addFlash(w http.ResponseWriter, r *http.Request, msg notify.Message) error {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return fmt.Errorf("error getting session: %w", err)
	}

	session.AddFlash(msg)

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

// popFlashes must run before anything is written to w.
func (h *Handler) popFlashes(w http.ResponseWriter, r *http.Request) []notify.Message {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get session", "error", err)

		return nil
	}

	flashes := session.Flashes()
	if len(flashes) == 0 {
		return nil
	}

	err = session.Save(r, w)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to save session", "error", err)
	}

	messages := make([]notify.Message, 0, len(flashes))

	for _, flash := range flashes {
		if msg, ok := flash.(notify.Message); ok {
			messages = append(messages, msg)
		}
	}

	return messages
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, msg notify.Message) {
	err := h.addFlash(w, r, msg)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to add flash message", "error", err)
	}
}
