package conversation

import (
	"github.com/huandu/go-clone"
	"github.com/rs/zerolog/log"
)

// History is the caller-owned, chronological list of user and assistant turns
type History []Turn

// Clone returns a deep copy that shares no memory with h
func (h History) Clone() History {
	if h == nil {
		return History{}
	}
	return clone.Clone(h).(History)
}

// Sanitize returns a deep copy of h restricted to caller-visible turns.
// System, tool and tool-request turns supplied by a caller are dropped.
func (h History) Sanitize() History {
	out := make(History, 0, len(h))
	dropped := 0
	for _, turn := range h {
		if !turn.IsCallerVisible() {
			dropped++
			continue
		}
		out = append(out, turn)
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("Ignoring non user/assistant turns in caller history")
	}
	return out.Clone()
}

// With returns a copy of h extended with turns; h is left untouched
func (h History) With(turns ...Turn) History {
	out := make(History, 0, len(h)+len(turns))
	out = append(out, h.Clone()...)
	if len(turns) == 0 {
		return out
	}
	return append(out, clone.Clone(turns).([]Turn)...)
}
