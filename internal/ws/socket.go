package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"promptcanvas/internal/round"
)

// Server pushes round snapshots to connected clients. Every controller
// state transition is broadcast as "round:state"; a client connecting
// mid-round receives the current snapshot immediately.
type Server struct {
	controller *round.Controller
	io         *socketio.Server
}

func New(controller *round.Controller) *Server {
	return &Server{controller: controller}
}

// Mount attaches the Socket.IO server to the given Gin engine and registers
// the broadcast hook on the controller.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		s.Join("round")
		s.Emit("round:state", srv.controller.Snapshot())
		return nil
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	io.OnError("/", func(s socketio.Conn, err error) {
		log.Warn().Err(err).Msg("socket error")
	})

	srv.controller.SetOnChange(func(snap round.Snapshot) {
		io.BroadcastToRoom("/", "round", "round:state", snap)
	})

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}
