package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrClosed = errors.New("recorder: closed")

// SessionEvent 连接生命周期事件
type SessionEvent struct {
	Room   string
	Player string
	Event  string // connect | disconnect
	At     time.Time
}

// SessionIndex 把连接/断开事件写入 SQLite；写入在独立协程中串行执行
type SessionIndex struct {
	db  *sql.DB
	log *zap.SugaredLogger

	mu      sync.RWMutex // 保护 ch 的关闭
	ch      chan SessionEvent
	closed  bool
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

func OpenSessionIndex(path string, log *zap.SugaredLogger) (*SessionIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			room   TEXT NOT NULL,
			player TEXT NOT NULL,
			event  TEXT NOT NULL,
			at_ms  INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS sessions_player ON sessions(player);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init session index: %w", err)
		}
	}

	s := &SessionIndex{db: db, log: log, ch: make(chan SessionEvent, 1024)}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

// Enqueue 非阻塞投递，队列满时丢弃并计数
func (s *SessionIndex) Enqueue(ev SessionEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- ev:
		return nil
	default:
		s.dropped.Add(1)
		return nil
	}
}

func (s *SessionIndex) Dropped() int64 { return s.dropped.Load() }

func (s *SessionIndex) loop() {
	defer s.wg.Done()
	for ev := range s.ch {
		_, err := s.db.Exec(`INSERT INTO sessions(room, player, event, at_ms) VALUES(?, ?, ?, ?)`,
			ev.Room, ev.Player, ev.Event, ev.At.UnixMilli())
		if err != nil && s.log != nil {
			s.log.Warnw("session index insert", "err", err)
		}
	}
}

// Close 写完队列中剩余事件后关闭数据库
func (s *SessionIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// History 按时间顺序返回某个连接的事件
func (s *SessionIndex) History(ctx context.Context, player string) ([]SessionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room, player, event, at_ms FROM sessions WHERE player = ? ORDER BY id`, player)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionEvent
	for rows.Next() {
		var ev SessionEvent
		var ms int64
		if err := rows.Scan(&ev.Room, &ev.Player, &ev.Event, &ms); err != nil {
			return nil, err
		}
		ev.At = time.UnixMilli(ms)
		out = append(out, ev)
	}
	return out, rows.Err()
}
