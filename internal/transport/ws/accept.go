package ws

import (
	"net/http"

	"github.com/coder/websocket"
)

// Accept upgrades an HTTP request. originPatterns lists the extra origins
// allowed to connect; same-origin requests are always accepted.
func Accept(w http.ResponseWriter, r *http.Request, originPatterns []string) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
}
