// Package scoreboard computes ranked results for a challenge and renders
// the outbound summary payload.
//
// Compose and Render are pure: the same challenge always yields the same
// summary and the same bytes.
package scoreboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/pong/internal/domain/model"
)

// Entry is one ranked response on the scoreboard.
type Entry struct {
	Rank      int    `json:"rank"`
	Responder string `json:"responder"`

	// RespondedAtMS is the platform-observed response instant.
	RespondedAtMS int64 `json:"responded_at_ms"`

	// LatencyMS is the delta from the challenge's issue instant.
	LatencyMS int64 `json:"latency_ms"`

	// Anomalous marks a negative latency (response observed before the
	// issue instant). The entry is still rendered; the anomaly is noted
	// instead of clamped away.
	Anomalous bool `json:"anomalous,omitempty"`
}

// Summary is the composed scoreboard for one challenge.
type Summary struct {
	ChallengeID string  `json:"challenge_id"`
	Team        string  `json:"team"`
	Initiator   string  `json:"initiator"`
	IssuedAtMS  int64   `json:"issued_at_ms"`
	Entries     []Entry `json:"entries"`
}

// Anomalous reports whether any entry carries a negative latency.
func (s Summary) Anomalous() bool {
	for _, e := range s.Entries {
		if e.Anomalous {
			return true
		}
	}
	return false
}

// medals decorate the top ranks in the rendered payload.
var medals = []string{"🥇", "🥈", "🥉"}

// Compose orders the accepted responses ascending by observed timestamp and
// assigns ranks. Ties on identical timestamps break on responder id, which
// keeps repeated invocations stable.
func Compose(c *model.Challenge) Summary {
	entries := make([]Entry, 0, len(c.Responses))
	for responder, ts := range c.Responses {
		latency := ts - c.IssuedAt
		entries = append(entries, Entry{
			Responder:     responder,
			RespondedAtMS: ts,
			LatencyMS:     latency,
			Anomalous:     latency < 0,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RespondedAtMS != entries[j].RespondedAtMS {
			return entries[i].RespondedAtMS < entries[j].RespondedAtMS
		}
		return entries[i].Responder < entries[j].Responder
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return Summary{
		ChallengeID: c.ID,
		Team:        c.Team,
		Initiator:   c.Initiator,
		IssuedAtMS:  c.IssuedAt,
		Entries:     entries,
	}
}

// Render produces the human-readable scoreboard text.
func Render(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏓 Pong! %s's challenge is over.\n", s.Initiator)

	if len(s.Entries) == 0 {
		b.WriteString("Nobody answered the ping.")
		return b.String()
	}

	for _, e := range s.Entries {
		medal := "  "
		if e.Rank-1 < len(medals) {
			medal = medals[e.Rank-1]
		}
		fmt.Fprintf(&b, "%d. %s %s — %s at %s", e.Rank, medal, e.Responder, formatLatency(e.LatencyMS), formatInstant(e.RespondedAtMS))
		if e.Anomalous {
			b.WriteString(" (clock anomaly)")
		}
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatInstant renders a millisecond epoch timestamp as a UTC clock time.
func formatInstant(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("15:04:05.000")
}

// formatLatency renders a millisecond latency as seconds.
func formatLatency(ms int64) string {
	return fmt.Sprintf("%.3fs", float64(ms)/1000.0)
}
