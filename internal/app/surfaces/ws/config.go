package ws

// Configuration settings for the websocket surface
type Configuration struct {
	Listen string `toml:"listen" default:":8080" comment:"listen address for /ws, /metrics and /health"`
}
