package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mazerun/protocol"
)

// Server HTTP 与 WebSocket 入口
type Server struct {
	rooms    *Manager
	log      *zap.SugaredLogger
	origins  []string
	upgrader websocket.Upgrader
}

// NewServer origins 为空时允许所有来源
func NewServer(rooms *Manager, log *zap.SugaredLogger, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		rooms:   rooms,
		log:     log,
		origins: origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 无鉴权，来源限制交给 CORS 配置
				return true
			},
		},
	}
}

// Router 路由：/map /ws /admin/* /metrics /healthz
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/map", s.HandleMap)
	r.Get("/ws", s.HandleWS)
	r.Get("/metrics", s.HandleMetrics)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/config", s.HandleAdminConfig)
		ar.Post("/config", s.HandleAdminConfig)
		ar.Post("/winner", s.HandleWinner)
		ar.Post("/scoreboard", s.HandleScoreboard)
	})
	return r
}

// HandleMap 同步返回静态世界描述
func (s *Server) HandleMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.Describe(s.rooms.World()))
}
