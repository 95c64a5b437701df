package ports

// Broadcaster pushes change notifications to connected live-reload clients.
// Delivery is best-effort: there is no acknowledgement, retry or queue for
// clients that are not connected.
//
//go:generate mockgen -source=broadcaster.go -destination=mocks/mock_broadcaster.go -package=mocks
type Broadcaster interface {
	// Broadcast notifies every connected client that paths changed.
	Broadcast(paths ...string)
	// ClientCount returns the number of connected clients.
	ClientCount() int
}
