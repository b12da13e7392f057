package core

import "sync/atomic"

// Metrics counts observable hub occurrences.
type Metrics struct {
	Registrations     atomic.Int64
	MessagesDelivered atomic.Int64
	EmptyRoomDrops    atomic.Int64
	SlowConsumerDrops atomic.Int64
	ModerationErrors  atomic.Int64
	NotifyFailures    atomic.Int64
	GraceScheduled    atomic.Int64
	GraceExpired      atomic.Int64
	GraceResumed      atomic.Int64
	GraceStale        atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Registrations     int64 `json:"registrations"`
	MessagesDelivered int64 `json:"messages_delivered"`
	EmptyRoomDrops    int64 `json:"empty_room_drops"`
	SlowConsumerDrops int64 `json:"slow_consumer_drops"`
	ModerationErrors  int64 `json:"moderation_errors"`
	NotifyFailures    int64 `json:"notify_failures"`
	GraceScheduled    int64 `json:"grace_scheduled"`
	GraceExpired      int64 `json:"grace_expired"`
	GraceResumed      int64 `json:"grace_resumed"`
	GraceStale        int64 `json:"grace_stale"`
	OnlineUsers       int   `json:"online_users"`
	Connections       int   `json:"connections"`
	Rooms             int   `json:"rooms"`
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Registrations:     m.Registrations.Load(),
		MessagesDelivered: m.MessagesDelivered.Load(),
		EmptyRoomDrops:    m.EmptyRoomDrops.Load(),
		SlowConsumerDrops: m.SlowConsumerDrops.Load(),
		ModerationErrors:  m.ModerationErrors.Load(),
		NotifyFailures:    m.NotifyFailures.Load(),
		GraceScheduled:    m.GraceScheduled.Load(),
		GraceExpired:      m.GraceExpired.Load(),
		GraceResumed:      m.GraceResumed.Load(),
		GraceStale:        m.GraceStale.Load(),
	}
}
