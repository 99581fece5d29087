package events

import (
	"sync/atomic"

	"github.com/r3labs/sse/v2"
)

var (
	Server         *sse.Server
	SessionsSeen   atomic.Int64
	ActiveSessions atomic.Int64
)

type Sessions struct {
	SessionsSeen   int64 `json:"sessions_seen"`
	ActiveSessions int64 `json:"active_sessions"`
}

func Init() {
	server := sse.New()
	server.AutoReplay = false
	server.OnSubscribe = func(streamID string, sub *sse.Subscriber) {
		SessionsSeen.Add(1)
		ActiveSessions.Add(1)
	}
	server.OnUnsubscribe = func(streamID string, sub *sse.Subscriber) {
		ActiveSessions.Add(-1)
	}
	Server = server
}
