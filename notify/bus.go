// Package notify fans match events out to interested listeners: SSE
// clients of this process and, optionally, other instances through Redis.
package notify

import "time"

const (
	EventQueueUpdate     = "queue_update"
	EventMatchCreated    = "match_created"
	EventDraftUpdate     = "draft_update"
	EventMatchStarted    = "match_started"
	EventBetsUpdate      = "bets_update"
	EventReportUpdate    = "report_update"
	EventMatchFinalized  = "match_finalized"
	EventMatchOverridden = "match_overridden"
	EventMatchCanceled   = "match_canceled"
	EventConfigUpdate    = "config_update"
)

type Event struct {
	Type    string    `json:"type"`
	MatchID string    `json:"match_id,omitempty"`
	At      time.Time `json:"at"`
}

// Bus publishes fire-and-forget events. Implementations must not block the
// caller for long and must swallow their own failures.
type Bus interface {
	Publish(eventType, matchID string)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(string, string) {}
