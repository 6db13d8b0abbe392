package client

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"mazerun/movement"
	"mazerun/protocol"
	"mazerun/world"
)

type sentFrame struct {
	typ string
	v   any
}

type fakeOutbound struct {
	sent []sentFrame
	err  error
}

func (f *fakeOutbound) Send(typ string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentFrame{typ, v})
	return nil
}

func envelope(t *testing.T, typ string, v any) protocol.Envelope {
	t.Helper()
	frame, err := protocol.Encode(typ, v)
	if err != nil {
		t.Fatal(err)
	}
	env, err := protocol.Decode(frame)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func newTestSession() *Session {
	return NewSession(world.Default(), movement.DefaultTuning(), zap.NewNop().Sugar())
}

func TestSessionAssignsLocalAgentAtEntrance(t *testing.T) {
	s := newTestSession()
	if err := s.Handle(envelope(t, protocol.TypeID, "me"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if s.LocalID() != "me" || s.Local() == nil {
		t.Fatal("local agent not created")
	}
	want := world.Vec3{X: 1, Y: -1, Z: 0.35}
	if s.Local().Agent().Position != want {
		t.Fatalf("spawn = %v, want %v", s.Local().Agent().Position, want)
	}
}

func TestSessionMapReplacesWorldAndRespawns(t *testing.T) {
	s := newTestSession()
	_ = s.Handle(envelope(t, protocol.TypeID, "me"), time.Now())
	s.Local().Agent().Position = world.Vec3{X: 5, Y: -5, Z: 0.35}

	w, _ := world.New([][]int{{1, 1, 1}, {1, 0, 0}}, &world.Vec2{X: 2, Y: -1}, nil)
	if err := s.Handle(envelope(t, protocol.TypeMap, protocol.Describe(w)), time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(s.World().Walls()) != 2 {
		t.Fatalf("walls = %d", len(s.World().Walls()))
	}
	if p := s.Local().Agent().Position; p.X != 2 || p.Y != -1 {
		t.Fatalf("local not respawned: %v", p)
	}
}

func TestSessionSnapshotsAndRemoval(t *testing.T) {
	s := newTestSession()
	var joined, removed []string
	s.OnJoined = func(id string) { joined = append(joined, id) }
	s.OnRemoved = func(id string) { removed = append(removed, id) }
	now := time.Unix(10, 0)

	_ = s.Handle(envelope(t, protocol.TypeID, "me"), now)
	snap := protocol.Clients{"me": {P: vec(1, -1)}, "other": {P: vec(3, -1)}}
	if err := s.Handle(envelope(t, protocol.TypeClients, snap), now); err != nil {
		t.Fatal(err)
	}
	if len(joined) != 1 || joined[0] != "other" {
		t.Fatalf("joined = %v", joined)
	}
	_ = s.Handle(envelope(t, protocol.TypeRemoveClient, "other"), now)
	_ = s.Handle(envelope(t, protocol.TypeRemoveClient, "other"), now)
	if len(removed) != 1 {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := s.Remotes().Agent("other"); ok {
		t.Fatal("removed agent still present")
	}
}

func TestSessionRoundEvents(t *testing.T) {
	s := newTestSession()
	var winner string
	var board protocol.Scoreboard
	s.OnWinner = func(id string) { winner = id }
	s.OnScoreboard = func(sb protocol.Scoreboard) { board = sb }
	_ = s.Handle(envelope(t, protocol.TypeWinner, "a"), time.Now())
	_ = s.Handle(envelope(t, protocol.TypeScoreboard, protocol.Scoreboard{"a": 2}), time.Now())
	if winner != "a" || board["a"] != 2 {
		t.Fatalf("winner=%q board=%v", winner, board)
	}
	if err := s.Handle(protocol.Envelope{Type: "mystery"}, time.Now()); err != nil {
		t.Fatalf("unknown types are ignored, got %v", err)
	}
	if err := s.Handle(protocol.Envelope{Type: protocol.TypeID, Data: []byte(`42`)}, time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSchedulerNetworkTick(t *testing.T) {
	s := newTestSession()
	out := &fakeOutbound{}
	sc := NewScheduler(s, out)
	now := time.UnixMilli(1_700_000_000_123)

	if err := sc.TickNetwork(now); err != nil || len(out.sent) != 0 {
		t.Fatalf("sent before id: %v %v", out.sent, err)
	}
	if _, stepped := sc.StepSimulation(now); stepped {
		t.Fatal("simulation stepped without a local agent")
	}

	_ = sc.Deliver(envelope(t, protocol.TypeID, "me"), now)
	s.Local().Intent().Press(movement.DirRight)
	res, stepped := sc.StepSimulation(now)
	if !stepped || res.Colliding {
		t.Fatalf("step = %+v stepped=%v", res, stepped)
	}
	if err := sc.TickNetwork(now); err != nil {
		t.Fatal(err)
	}
	if len(out.sent) != 1 || out.sent[0].typ != protocol.TypeUpdate {
		t.Fatalf("sent = %+v", out.sent)
	}
	u := out.sent[0].v.(protocol.Update)
	if u.T != now.UnixMilli() || u.P != s.Local().Agent().Position {
		t.Fatalf("update = %+v", u)
	}

	out.err = errors.New("broken pipe")
	if err := sc.TickNetwork(now); err == nil {
		t.Fatal("send error must surface")
	}
}
