package web

import (
	"github.com/gorilla/websocket"

	"github.com/calderon/vip8"
)

// Boot implements vip8.Display.
func (server *Server) Boot() error {
	return nil
}

// Render implements vip8.Display: the bit-packed screen is pushed to
// the connected peer as a binary message.
func (server *Server) Render(screen vip8.Screen, settings vip8.ScreenSettings) error {
	server.wsMutex.RLock()
	defer server.wsMutex.RUnlock()

	if server.socket == nil {
		return nil
	}

	return server.socket.WriteMessage(websocket.BinaryMessage, screen)
}
