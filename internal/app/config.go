package app

import (
	"net/http"
	"time"
)

// Config holds runtime wiring options for building the client.
type Config struct {
	Home      string        // config directory, e.g. $HOME/.murmur
	ServerURL string        // backend base URL, e.g. http://127.0.0.1:8080
	HTTP      *http.Client  // optional; defaults to a ten-second-timeout client
	CacheTTL  time.Duration // directory snapshot TTL; zero uses the default
}
