package server

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mazerun/protocol"
	"mazerun/world"
)

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	at     []time.Time
	closed int
}

func (f *fakeSender) Enqueue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, b)
	f.at = append(f.at, time.Now())
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// envelopes 解码已收到的帧，按类型过滤（空则全部）
func (f *fakeSender) envelopes(t *testing.T, typ string) []protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Envelope
	for _, b := range f.frames {
		env, err := protocol.Decode(b)
		if err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		if typ == "" || env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func lastClients(t *testing.T, f *fakeSender) protocol.Clients {
	t.Helper()
	envs := f.envelopes(t, protocol.TypeClients)
	if len(envs) == 0 {
		t.Fatal("no clients broadcast received")
	}
	var c protocol.Clients
	if err := envs[len(envs)-1].Unmarshal(&c); err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestRoom(opts ...RoomOption) *Room {
	opts = append([]RoomOption{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return NewRoom("test", world.Default(), zap.NewNop().Sugar(), opts...)
}

func update(t int64, x float64) protocol.Update {
	return protocol.Update{T: t, P: world.Vec3{X: x, Y: -1, Z: 0.35}}
}

func TestJoinSendsMapThenID(t *testing.T) {
	r := newTestRoom()
	a := &fakeSender{}
	r.Join("a", a)
	r.ProcessEvents()

	envs := a.envelopes(t, "")
	if len(envs) != 2 || envs[0].Type != protocol.TypeMap || envs[1].Type != protocol.TypeID {
		t.Fatalf("got %d frames, want map then id", len(envs))
	}
	var id string
	if err := envs[1].Unmarshal(&id); err != nil || id != "a" {
		t.Fatalf("id = %q, err %v", id, err)
	}
	var desc protocol.MapDescription
	if err := envs[0].Unmarshal(&desc); err != nil {
		t.Fatal(err)
	}
	if desc.Width != 10 || desc.Height != 7 {
		t.Fatalf("map size = %dx%d", desc.Width, desc.Height)
	}

	r.Tick()
	rec, ok := lastClients(t, a)["a"]
	if !ok || rec.P != nil || rec.T != 0 {
		t.Fatalf("new connection should have an empty record, got %+v (present %v)", rec, ok)
	}
}

func TestLastWriteWinsByArrivalOrder(t *testing.T) {
	r := newTestRoom()
	a := &fakeSender{}
	r.Join("a", a)

	const t1, t2 = 1000, 2000
	r.OnUpdate("a", update(t2, 5))
	r.OnUpdate("a", update(t1, 3))
	r.Tick()

	rec := lastClients(t, a)["a"]
	if rec.T != t1 || rec.P == nil || rec.P.X != 3 {
		t.Fatalf("record = %+v, want the later-arriving T1 sample", rec)
	}
}

func TestDisconnectBeforeTick(t *testing.T) {
	r := newTestRoom()
	a, b := &fakeSender{}, &fakeSender{}
	r.Join("a", a)
	r.Join("b", b)
	r.Tick()

	r.OnUpdate("a", update(0, 2))
	r.RequestLeave("b")
	r.RequestLeave("b") // 读泵与写失败可能各自请求一次
	r.OnUpdate("b", update(10, 9))
	r.Tick()

	snap := lastClients(t, a)
	if len(snap) != 1 || snap["a"].P == nil || snap["a"].P.X != 2 {
		t.Fatalf("snapshot = %+v, want only a", snap)
	}
	removed := a.envelopes(t, protocol.TypeRemoveClient)
	if len(removed) != 1 {
		t.Fatalf("removeClient sent %d times, want 1", len(removed))
	}
	var id string
	_ = removed[0].Unmarshal(&id)
	if id != "b" {
		t.Fatalf("removeClient id = %q", id)
	}
	if b.closed != 1 {
		t.Fatalf("b closed %d times", b.closed)
	}
	if got := r.Metrics().UpdatesIgnored; got != 1 {
		t.Fatalf("ignored updates = %d, want 1", got)
	}
}

func TestBroadcastIsUnconditional(t *testing.T) {
	r := newTestRoom()
	a := &fakeSender{}
	r.Join("a", a)
	r.OnUpdate("a", update(1, 1))
	for i := 0; i < 3; i++ {
		r.Tick()
	}
	envs := a.envelopes(t, protocol.TypeClients)
	if len(envs) != 3 {
		t.Fatalf("got %d broadcasts, want 3", len(envs))
	}
	if string(envs[1].Data) != string(envs[2].Data) {
		t.Fatal("unchanged registry produced different snapshots")
	}
	if r.TickSeq() != 3 {
		t.Fatalf("tick seq = %d", r.TickSeq())
	}
}

func TestSimulatedDrop(t *testing.T) {
	r := newTestRoom()
	a := &fakeSender{}
	r.Join("a", a)
	r.SetDropProb(1.5)
	if r.DropProb() != 1 {
		t.Fatalf("drop prob = %v, want clamped to 1", r.DropProb())
	}
	r.OnUpdate("a", update(1, 1))
	r.Tick()
	if rec := lastClients(t, a)["a"]; rec.P != nil {
		t.Fatalf("dropped update was applied: %+v", rec)
	}
	if r.Metrics().DropsSimulated != 1 {
		t.Fatalf("drops = %d", r.Metrics().DropsSimulated)
	}
}

func TestWinnerAndScoreboardBroadcast(t *testing.T) {
	r := newTestRoom()
	a, b := &fakeSender{}, &fakeSender{}
	r.Join("a", a)
	r.Join("b", b)
	if err := r.AnnounceWinner("a"); err != nil {
		t.Fatal(err)
	}
	if err := r.PublishScoreboard(protocol.Scoreboard{"a": 1}); err != nil {
		t.Fatal(err)
	}
	r.ProcessEvents()
	for _, s := range []*fakeSender{a, b} {
		if len(s.envelopes(t, protocol.TypeWinner)) != 1 || len(s.envelopes(t, protocol.TypeScoreboard)) != 1 {
			t.Fatal("winner/scoreboard not delivered to every connection")
		}
	}
}

type memRecorder struct {
	mu        sync.Mutex
	snapshots int
	events    []string
}

func (m *memRecorder) RecordSnapshot(string, int64, time.Time, protocol.Clients) {
	m.mu.Lock()
	m.snapshots++
	m.mu.Unlock()
}

func (m *memRecorder) RecordLifecycle(_, player, event string, _ time.Time) {
	m.mu.Lock()
	m.events = append(m.events, player+":"+event)
	m.mu.Unlock()
}

func TestRecorderHooks(t *testing.T) {
	rec := &memRecorder{}
	r := newTestRoom(WithRecorder(rec))
	r.Join("a", &fakeSender{})
	r.Tick()
	r.RequestLeave("a")
	r.Tick()
	if rec.snapshots != 2 {
		t.Fatalf("snapshots = %d", rec.snapshots)
	}
	if len(rec.events) != 2 || rec.events[0] != "a:connect" || rec.events[1] != "a:disconnect" {
		t.Fatalf("events = %v", rec.events)
	}
}

func TestRunBroadcastIntervalIsStable(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	r := newTestRoom()
	a := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	r.Join("a", a)

	// 持续灌入 update，广播节奏不应受影响
	stop := make(chan struct{})
	go func() {
		var n int64
		for {
			select {
			case <-stop:
				return
			default:
			}
			n++
			r.OnUpdate("a", update(n, float64(n)))
			if n%50 == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}()

	time.Sleep(620 * time.Millisecond)
	close(stop)
	cancel()
	<-done

	a.mu.Lock()
	var ticks []time.Time
	for i, b := range a.frames {
		if env, _ := protocol.Decode(b); env.Type == protocol.TypeClients {
			ticks = append(ticks, a.at[i])
		}
	}
	a.mu.Unlock()

	if len(ticks) < 9 || len(ticks) > 13 {
		t.Fatalf("got %d broadcasts in ~620ms, want ~12", len(ticks))
	}
	avg := ticks[len(ticks)-1].Sub(ticks[0]) / time.Duration(len(ticks)-1)
	if avg < 40*time.Millisecond || avg > 65*time.Millisecond {
		t.Fatalf("average broadcast interval %v, want ~50ms", avg)
	}
	if a.closed == 0 {
		t.Fatal("shutdown did not close the connection")
	}
}

func TestStoppedRoomRejectsEvents(t *testing.T) {
	r := newTestRoom()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	a := &fakeSender{}
	if r.Join("a", a) {
		t.Fatal("join accepted by a stopped room")
	}
	if err := r.AnnounceWinner("a"); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("winner err = %v, want ErrRoomClosed", err)
	}
	if err := r.PublishScoreboard(protocol.Scoreboard{"a": 1}); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("scoreboard err = %v, want ErrRoomClosed", err)
	}
	if len(a.envelopes(t, "")) != 0 {
		t.Fatal("stopped room sent frames")
	}
}

func TestUnencodableMapIsNotSent(t *testing.T) {
	w, err := world.New(world.DefaultGrid, &world.Vec2{X: math.NaN()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRoom("nan", w, zap.NewNop().Sugar())
	a := &fakeSender{}
	r.Join("a", a)
	r.ProcessEvents()

	envs := a.envelopes(t, "")
	if len(envs) != 1 || envs[0].Type != protocol.TypeID {
		t.Fatalf("frames = %+v, want only the id", envs)
	}
}
