package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPollInterval = 500 * time.Millisecond
)

// wsMessage is the server-push envelope for both WebSocket channels:
// {type: "progress"|"completed"|"error", job_id, timestamp, ...}.
type wsMessage map[string]any

func newWSMessage(msgType, jobID string) wsMessage {
	return wsMessage{
		"type":      msgType,
		"job_id":    jobID,
		"timestamp": time.Now().UTC(),
	}
}

// handleWSBulkProcess handles GET /ws/bulk-process/{job_id}: streams
// progress for a single background task until it reaches a terminal
// state, then closes.
func (s *Server) handleWSBulkProcess(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	s.streamTaskProgress(ctx, conn, jobID)
	conn.Close(websocket.StatusNormalClosure, "task finished")
}

// handleWSProgress handles GET /ws/progress/{topic_id}: a
// subscribe-then-stream channel. The client sends {"type":"subscribe_job",
// "job_id": "..."} to pick which background task to follow; "ping"
// messages get a "pong" reply. Reading is handled out-of-band from the
// push loop since coder/websocket only allows one reader at a time.
func (s *Server) handleWSProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	var jobID atomic.Value
	jobID.Store("")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg struct {
				Type  string `json:"type"`
				JobID string `json:"job_id"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "ping":
				writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
				data, _ := json.Marshal(map[string]string{"type": "pong"})
				conn.Write(writeCtx, websocket.MessageText, data)
				cancel()
			case "subscribe_job":
				jobID.Store(msg.JobID)
			}
		}
	}()

	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-ticker.C:
			id, _ := jobID.Load().(string)
			if id == "" {
				continue
			}
			if s.pushTaskUpdate(ctx, conn, id) {
				jobID.Store("")
			}
		}
	}
}

// streamTaskProgress polls the task manager until the task reaches a
// terminal state or the connection/context ends.
func (s *Server) streamTaskProgress(ctx context.Context, conn *websocket.Conn, jobID string) {
	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.pushTaskUpdate(ctx, conn, jobID) {
				return
			}
		}
	}
}

// pushTaskUpdate writes one progress/completed/error message for jobID
// and reports whether the task has reached a terminal state.
func (s *Server) pushTaskUpdate(ctx context.Context, conn *websocket.Conn, jobID string) (terminal bool) {
	task, ok := s.tasks.Get(jobID)
	if !ok {
		msg := newWSMessage("error", jobID)
		msg["message"] = "unknown job"
		s.writeWS(ctx, conn, msg)
		return true
	}

	var msg wsMessage
	switch task.Status {
	case core.TaskStatusCompleted:
		msg = newWSMessage("completed", jobID)
		msg["result"] = task.Result
		terminal = true
	case core.TaskStatusFailed:
		msg = newWSMessage("error", jobID)
		msg["message"] = task.Error
		terminal = true
	case core.TaskStatusCancelled:
		msg = newWSMessage("error", jobID)
		msg["message"] = "cancelled"
		terminal = true
	default:
		msg = newWSMessage("progress", jobID)
		msg["progress"] = task.Progress
		msg["processed_items"] = task.ProcessedItems
		msg["total_items"] = task.TotalItems
		msg["current_item"] = task.CurrentItem
	}

	s.writeWS(ctx, conn, msg)
	return terminal
}

func (s *Server) writeWS(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("server: failed to marshal websocket message", "error", err.Error())
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		logger.Warn("server: websocket write failed", "error", err.Error())
	}
}
