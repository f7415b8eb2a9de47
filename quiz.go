/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type role int

const (
	roleHost role = iota
	rolePlayer
)

// Client is one live websocket connection. The hub assigns playerID on a
// successful join; host connections never get one.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	role     role
	playerID string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades a connection and registers it with the hub under the
// role advertised in the query string.
func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var clientRole role
		switch r.URL.Query().Get("role") {
		case "host":
			clientRole = roleHost
		case "player":
			clientRole = rolePlayer
		default:
			http.Error(w, "missing or invalid role", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
			role: clientRole,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// Unparseable frames are dropped without closing the connection.
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Type {
		case "join", "start", "answer", "next", "reset":
			h.messages <- clientEnvelope{
				client: c,
				env:    env,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler generates a PNG QR code pointing players at the join page.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/play"

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerQuizGame sets up routes so that:
//   - $prefix/play        → player client
//   - $prefix/host        → host client
//   - $prefix/ws?role=…   → websocket endpoint
//   - $prefix/qr          → PNG QR code for the join page
func registerQuizGame(cfg *Config, mux *httprouter.Router, hub *Hub, errs chan<- error) {
	mux.GET(cfg.prefix+"/play", servePlayerPage(cfg, errs))

	mux.GET(cfg.prefix+"/host", serveHostPage(cfg, errs))

	mux.GET(cfg.prefix+"/assets/quiz/app.css", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/assets/quiz/player.js", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/assets/quiz/host.js", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/ws", serveWS(cfg, hub))

	mux.GET(cfg.prefix+"/qr", qrHandler(cfg))
}
