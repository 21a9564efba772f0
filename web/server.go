// Package web hosts a machine behind an HTTP server: the display is
// streamed over a websocket, key state comes back the same way, and an
// optional debugger pushes per-cycle machine state.
package web

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/retroenv/retrogolib/log"

	"github.com/calderon/vip8"
)

type Server struct {
	*vip8.InMemoryKeyboard
	*vip8.DummyBuzzer

	cpu      *vip8.Cpu
	debugger *Debugger
	logger   *log.Logger

	socket  *websocket.Conn
	wsMutex sync.RWMutex
}

type ServerConfig struct {
	ScreenSettings vip8.ScreenSettings
	UseDebugger    bool
	Speed          uint
}

type ServerConfigCb func(config *ServerConfig)

func NewServer(mem *vip8.Memory, logger *log.Logger, configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		ScreenSettings: vip8.SmallScreen,
		UseDebugger:    false,
		Speed:          vip8.DefaultSpeed,
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		InMemoryKeyboard: vip8.NewInMemoryKeyboard(),
		DummyBuzzer:      vip8.NewDummyBuzzer(),

		logger: logger,
	}

	s.cpu = vip8.NewCpu(mem, config.ScreenSettings, s, s, s.DummyBuzzer)
	s.cpu.SetLogger(logger)
	s.cpu.SetSpeedInHz(config.Speed)
	if config.UseDebugger {
		s.debugger = NewDebugger(s.cpu, logger)
	}

	return s
}

func (server *Server) LoadProgram(program []byte) error {
	return server.cpu.LoadProgram(program)
}

func (server *Server) Speed(s uint) {
	server.cpu.SetSpeedInHz(s)
}

// Listen boots the machine, starts the run loop and serves the
// websocket endpoints until the listener fails.
func (server *Server) Listen(port int) error {
	if err := server.cpu.Boot(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/screen", server.handleScreen)
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		server.cpu.Start()
	})
	mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		server.cpu.Stop()
	})
	if server.debugger != nil {
		server.debugger.Attach(mux)
	}

	go func() {
		if err := server.cpu.Run(); err != nil {
			server.logger.Error("machine stopped",
				log.String("error", err.Error()))
		}
	}()

	server.logger.Info("server listening",
		log.String("addr", fmt.Sprintf(":%d", port)))

	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}

var upgrader = websocket.Upgrader{} // use default options

// handleScreen upgrades the connection, registers it as the display
// sink and consumes key-state messages from the peer.
func (server *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Error("websocket upgrade failed",
			log.String("error", err.Error()))
		return
	}
	defer conn.Close()

	server.setWs(conn)
	defer server.unsetWs()

	// The peer sends its 16-key state as a 2-byte bitmask whenever a
	// key goes down or up.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(msg) != 2 {
			continue
		}

		mask := uint16(msg[0])<<8 | uint16(msg[1])
		state := vip8.KeyboardState{}
		for k := range state {
			state[k] = mask&(1<<k) != 0
		}
		server.SetState(state)
	}
}

func (server *Server) setWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	server.socket = conn
}

func (server *Server) unsetWs() {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	server.socket = nil
}
