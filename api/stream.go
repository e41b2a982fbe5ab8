package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/tailorme/apperrors"
	"github.com/raushankrgupta/tailorme/store"
	"github.com/raushankrgupta/tailorme/utils"
)

const streamHeartbeat = 30 * time.Second

func writeEvent(w http.ResponseWriter, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func streamErrorMessage(err error) string {
	if apiErr, ok := apperrors.As(err); ok {
		return apiErr.Message
	}
	if errors.Is(err, store.ErrNotFound) {
		return "Not found"
	}
	return "Something went wrong"
}

// serveStream writes every snapshot of sub as a server-sent event until the
// client goes away, the subscription ends or render reports done. The
// subscription is closed on return.
func serveStream[T any](w http.ResponseWriter, r *http.Request, logger *strings.Builder, sub *store.Subscription[T], render func(T) (event string, payload interface{}, done bool)) {
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, logger, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	sent := 0
	defer func() {
		utils.AddToLogMessage(logger, fmt.Sprintf("Stream closed after %d events", sent))
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v, ok := <-sub.Updates():
			if !ok {
				if err := sub.Err(); err != nil {
					utils.AddToLogMessage(logger, fmt.Sprintf("Subscription ended: %v", err))
					writeEvent(w, "error", map[string]string{"error": streamErrorMessage(err)})
					flusher.Flush()
				}
				return
			}
			event, payload, done := render(v)
			if err := writeEvent(w, event, payload); err != nil {
				utils.AddToLogMessage(logger, fmt.Sprintf("Failed to write event: %v", err))
				return
			}
			flusher.Flush()
			sent++
			if done {
				return
			}
		}
	}
}
