// Package livereload implements a LiveReload 7 server: a websocket hub that
// pushes reload commands to browsers, and the HTTP routes around it.
package livereload

import "encoding/json"

const (
	// ProtocolOfficial7 is the protocol URL exchanged in the hello handshake.
	ProtocolOfficial7 = "http://livereload.com/protocols/official-7"
	serverName        = "brisk"

	commandHello  = "hello"
	commandReload = "reload"
)

// Message is a LiveReload protocol frame. Only the fields used by hello and
// reload are modelled.
type Message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
}

func helloMessage() []byte {
	b, _ := json.Marshal(Message{
		Command:    commandHello,
		Protocols:  []string{ProtocolOfficial7},
		ServerName: serverName,
	})
	return b
}

func reloadMessage(path string) []byte {
	b, _ := json.Marshal(Message{Command: commandReload, Path: path, LiveCSS: true})
	return b
}
