package client

import (
	"time"

	"go.uber.org/zap"

	"mazerun/movement"
	"mazerun/protocol"
	"mazerun/world"
)

// Session 客户端会话：持有静态世界、本地控制器与远端插值器。
// 所有方法只在驱动协程中调用。
type Session struct {
	world   *world.World
	tuning  movement.Tuning
	local   *movement.Controller
	localID string
	remotes *Interpolator
	log     *zap.SugaredLogger

	// 表现层回调，可为空
	OnWinner     func(id string)
	OnScoreboard func(sb protocol.Scoreboard)
	OnJoined     func(id string)
	OnRemoved    func(id string)
}

func NewSession(w *world.World, t movement.Tuning, log *zap.SugaredLogger) *Session {
	return &Session{
		world:   w,
		tuning:  t,
		remotes: NewInterpolator(DefaultTransition, w.Entrance(), t.AgentSize),
		log:     log,
	}
}

func (s *Session) World() *world.World         { return s.world }
func (s *Session) LocalID() string             { return s.localID }
func (s *Session) Remotes() *Interpolator      { return s.remotes }
func (s *Session) Local() *movement.Controller { return s.local }

// Handle 分发一条服务端消息
func (s *Session) Handle(env protocol.Envelope, now time.Time) error {
	switch env.Type {
	case protocol.TypeMap:
		var desc protocol.MapDescription
		if err := env.Unmarshal(&desc); err != nil {
			return err
		}
		w, err := desc.Build()
		if err != nil {
			return err
		}
		s.setWorld(w)
	case protocol.TypeID:
		var id string
		if err := env.Unmarshal(&id); err != nil {
			return err
		}
		s.assignID(id)
	case protocol.TypeClients:
		var snap protocol.Clients
		if err := env.Unmarshal(&snap); err != nil {
			return err
		}
		for _, id := range s.remotes.Apply(snap, now) {
			s.log.Debugw("remote agent appeared", "id", id)
			if s.OnJoined != nil {
				s.OnJoined(id)
			}
		}
	case protocol.TypeRemoveClient:
		var id string
		if err := env.Unmarshal(&id); err != nil {
			return err
		}
		if s.remotes.Remove(id) && s.OnRemoved != nil {
			s.OnRemoved(id)
		}
	case protocol.TypeWinner:
		var id string
		if err := env.Unmarshal(&id); err != nil {
			return err
		}
		s.log.Infow("the winner is", "id", id)
		if s.OnWinner != nil {
			s.OnWinner(id)
		}
	case protocol.TypeScoreboard:
		var sb protocol.Scoreboard
		if err := env.Unmarshal(&sb); err != nil {
			return err
		}
		s.log.Infow("scoreboard", "scores", sb)
		if s.OnScoreboard != nil {
			s.OnScoreboard(sb)
		}
	default:
		s.log.Debugw("unknown message ignored", "type", env.Type)
	}
	return nil
}

// assignID 在入口处生成本地代理
func (s *Session) assignID(id string) {
	s.localID = id
	agent := movement.NewAgent(id, movement.KindLocal, s.world.Entrance(), s.tuning.AgentSize)
	prev := s.local
	s.local = movement.NewController(agent, s.world, s.tuning)
	if prev != nil {
		*s.local.Intent() = *prev.Intent()
	}
	s.remotes.SetLocalID(id)
	s.log.Infow("assigned id", "id", id)
}

// setWorld 替换地图：碰撞源切换，所有代理回到入口
func (s *Session) setWorld(w *world.World) {
	s.world = w
	if s.local != nil {
		s.local.SetWorld(w)
		s.local.Respawn(w.Entrance())
	}
	s.remotes.Respawn(w.Entrance())
	s.log.Infow("map loaded", "width", w.Width(), "height", w.Height(), "walls", len(w.Walls()))
}
