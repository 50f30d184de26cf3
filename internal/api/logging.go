package api

import (
	"encoding/json"
	"time"
)

func (h *Handler) logEvent(event string, fields map[string]any) {
	payload := map[string]any{
		"event": event,
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("log_marshal_error: %v", err)
		return
	}
	h.logger.Printf(string(data))
}
