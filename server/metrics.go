package server

import "sync/atomic"

// Metrics tracks gateway activity for the /metrics endpoint.
type Metrics struct {
	Connections   int64 // accepted WebSocket upgrades
	AuthRejected  int64 // handshakes refused for a missing/invalid credential
	Joins         int64 // successful joins
	JoinsRejected int64 // joins refused at capacity
	Moves         int64
	Chats         int64
	Emotes        int64
	StaleDropped  int64 // events received before join or after leave
	SendsDropped  int64 // outbound frames discarded on a full send queue
}

func (m *Metrics) IncConnections() { atomic.AddInt64(&m.Connections, 1) }

func (m *Metrics) IncAuthRejected() { atomic.AddInt64(&m.AuthRejected, 1) }

func (m *Metrics) IncJoins() { atomic.AddInt64(&m.Joins, 1) }

func (m *Metrics) IncJoinsRejected() { atomic.AddInt64(&m.JoinsRejected, 1) }

func (m *Metrics) IncMoves() { atomic.AddInt64(&m.Moves, 1) }

func (m *Metrics) IncChats() { atomic.AddInt64(&m.Chats, 1) }

func (m *Metrics) IncEmotes() { atomic.AddInt64(&m.Emotes, 1) }

func (m *Metrics) IncStaleDropped() { atomic.AddInt64(&m.StaleDropped, 1) }

func (m *Metrics) IncSendsDropped() { atomic.AddInt64(&m.SendsDropped, 1) }

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"connections":    atomic.LoadInt64(&m.Connections),
		"auth_rejected":  atomic.LoadInt64(&m.AuthRejected),
		"joins":          atomic.LoadInt64(&m.Joins),
		"joins_rejected": atomic.LoadInt64(&m.JoinsRejected),
		"moves":          atomic.LoadInt64(&m.Moves),
		"chats":          atomic.LoadInt64(&m.Chats),
		"emotes":         atomic.LoadInt64(&m.Emotes),
		"stale_dropped":  atomic.LoadInt64(&m.StaleDropped),
		"sends_dropped":  atomic.LoadInt64(&m.SendsDropped),
	}
}
