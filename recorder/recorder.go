package recorder

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"mazerun/protocol"
)

// Recorder 组合快照日志与连接索引，两者都可为空
type Recorder struct {
	snapshots *SnapshotLog
	sessions  *SessionIndex
	log       *zap.SugaredLogger
}

// Open recordDir/sessionDB 为空则对应记录关闭；两者都为空时返回 nil
func Open(recordDir, sessionDB string, log *zap.SugaredLogger) (*Recorder, error) {
	if recordDir == "" && sessionDB == "" {
		return nil, nil
	}
	r := &Recorder{log: log}
	if recordDir != "" {
		r.snapshots = NewSnapshotLog(recordDir, "snapshots")
	}
	if sessionDB != "" {
		idx, err := OpenSessionIndex(sessionDB, log)
		if err != nil {
			return nil, err
		}
		r.sessions = idx
	}
	return r, nil
}

func (r *Recorder) Sessions() *SessionIndex { return r.sessions }

func (r *Recorder) RecordSnapshot(room string, tick int64, at time.Time, clients protocol.Clients) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Write(SnapshotEntry{Room: room, Tick: tick, At: at, Clients: clients}); err != nil {
		r.log.Warnw("record snapshot", "room", room, "tick", tick, "err", err)
	}
}

func (r *Recorder) RecordLifecycle(room, player, event string, at time.Time) {
	if r.sessions == nil {
		return
	}
	if err := r.sessions.Enqueue(SessionEvent{Room: room, Player: player, Event: event, At: at}); err != nil {
		r.log.Debugw("record lifecycle", "player", player, "err", err)
	}
}

func (r *Recorder) Close() error {
	var err error
	if r.snapshots != nil {
		err = r.snapshots.Close()
	}
	if r.sessions != nil {
		err = errors.Join(err, r.sessions.Close())
	}
	return err
}
