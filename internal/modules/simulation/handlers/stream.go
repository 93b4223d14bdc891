package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// HandleStreamJob handles GET /api/simulation/jobs/{id}/stream. It upgrades
// the connection to a websocket and pushes progress events until the job
// finishes or the client disconnects.
func (h *Handler) HandleStreamJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	events, cancel, ok := h.service.SubscribeJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to accept websocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "client disconnected")
			return
		case ev, open := <-events:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
			writeCtx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			done()
			if err != nil {
				h.log.Debug().Err(err).Str("job_id", jobID).Msg("Progress stream write failed")
				return
			}
		}
	}
}
