package server

import "time"

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 0 // websocket connections stay open indefinitely
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)
