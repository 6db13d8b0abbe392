package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mazerun/protocol"
)

// HandleAdminConfig 提供房间配置的读取与更新（热更新）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		SimulateDropProb *float64 `json:"simulateDropProb,omitempty"`
		TickIntervalMs   *int64   `json:"tickIntervalMs,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		room, ok := s.lookupRoom(w, r)
		if !ok {
			return
		}
		drop := room.DropProb()
		ms := room.interval.Milliseconds()
		writeJSON(w, http.StatusOK, cfg{SimulateDropProb: &drop, TickIntervalMs: &ms})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TickIntervalMs != nil {
			http.Error(w, "tickIntervalMs is read-only", http.StatusBadRequest)
			return
		}
		// POST 允许预先配置尚未有人加入的房间
		room := s.rooms.GetOrCreateRoom(r.URL.Query().Get("room"))
		if body.SimulateDropProb != nil {
			room.SetDropProb(*body.SimulateDropProb)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		s.log.Infow("config updated", "room", room.ID, "drop", room.DropProb())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleWinner POST /admin/winner?room=room-1 {"id":"..."}
func (s *Server) HandleWinner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	room, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}
	if err := room.AnnounceWinner(PlayerID(body.ID)); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// HandleScoreboard POST /admin/scoreboard?room=room-1 {"id": score}
func (s *Server) HandleScoreboard(w http.ResponseWriter, r *http.Request) {
	var sb protocol.Scoreboard
	if err := json.NewDecoder(r.Body).Decode(&sb); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	room, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}
	if err := room.PublishScoreboard(sb); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    room.ID,
		"tick":    room.TickSeq(),
		"metrics": room.metrics.Snapshot(),
	})
}

// lookupRoom 只查找已存在的房间，不存在时写 404
func (s *Server) lookupRoom(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	id := r.URL.Query().Get("room")
	if id == "" {
		id = DefaultRoomID
	}
	room, ok := s.rooms.Room(id)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
	}
	return room, ok
}

func statusFor(err error) int {
	if errors.Is(err, ErrRoomClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
