package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mazerun/client"
	"mazerun/config"
	"mazerun/logging"
	"mazerun/movement"
	"mazerun/protocol"
)

var directions = []movement.Direction{
	movement.DirUp, movement.DirDown, movement.DirLeft, movement.DirRight,
}

// walker 随机游走：每隔一段时间换一个方向，撞墙立即换
type walker struct {
	rng    *rand.Rand
	every  time.Duration
	next   time.Time
	bumped bool
}

func (wk *walker) steer(s *client.Session, now time.Time) {
	local := s.Local()
	if local == nil {
		return
	}
	if !wk.bumped && now.Before(wk.next) {
		return
	}
	in := local.Intent()
	in.Reset()
	in.Press(directions[wk.rng.Intn(len(directions))])
	// 偶尔斜走
	if wk.rng.Intn(4) == 0 {
		in.Press(directions[wk.rng.Intn(len(directions))])
	}
	wk.next = now.Add(wk.every)
	wk.bumped = false
}

// 无界面客户端：连接服务端，按随机方向在迷宫里走动
func main() {
	var (
		serverURL string
		room      string
		worldFile string
		duration  time.Duration
		turnEvery time.Duration
		seed      int64
		debug     bool
	)
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "server base url")
	flag.StringVar(&room, "room", "room-1", "room to join")
	flag.StringVar(&worldFile, "world", "", "YAML file providing movement tuning (map always comes from the server)")
	flag.DurationVar(&duration, "duration", 0, "stop after this long (0 = until interrupted)")
	flag.DurationVar(&turnEvery, "turn", 1500*time.Millisecond, "how often the bot picks a new direction")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.BoolVar(&debug, "debug", false, "debug logging")
	flag.Parse()

	log := logging.New(logging.Options{Console: true, Debug: debug})
	defer logging.Sync(log)

	_, tuning, err := config.LoadWorld(worldFile)
	if err != nil {
		log.Fatalw("load tuning", "file", worldFile, "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	w, err := client.FetchMap(ctx, nil, serverURL)
	if err != nil {
		log.Fatalw("fetch map", "server", serverURL, "err", err)
	}
	ch, err := client.Dial(ctx, serverURL, room, log)
	if err != nil {
		log.Fatalw("connect", "err", err)
	}
	defer ch.Close()

	session := client.NewSession(w, tuning, log)
	session.OnWinner = func(id string) {
		if id == session.LocalID() {
			log.Info("we won")
		}
	}
	session.OnScoreboard = func(sb protocol.Scoreboard) {
		log.Infow("our score", "score", sb[session.LocalID()])
	}

	wk := &walker{rng: rand.New(rand.NewSource(seed)), every: turnEvery}
	afterFrame := func(now time.Time, res movement.StepResult) {
		if res.Colliding {
			wk.bumped = true
		}
	}
	drv := &client.Driver{
		Sched:       client.NewScheduler(session, ch),
		Inbound:     ch.Inbound(),
		BeforeFrame: func(now time.Time) { wk.steer(session, now) },
		AfterFrame:  afterFrame,
	}

	err = drv.Run(ctx)
	switch {
	case ctx.Err() != nil:
		log.Infow("bot stopped", "id", session.LocalID())
	case errors.Is(err, client.ErrChannelClosed):
		log.Warnw("server closed the connection", "err", ch.Err())
	default:
		log.Errorw("driver stopped", "err", err)
	}
}
