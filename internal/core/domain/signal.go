package domain

import "encoding/json"

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
	SignalUnknown   SignalType = "unknown"
)

// Signal is an opaque negotiation payload (SDP or ICE candidate JSON). The
// relay forwards it untouched.
type Signal json.RawMessage

func (s Signal) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Signal) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// Type peeks at the payload to label log lines. It never rejects a signal.
func (s Signal) Type() SignalType {
	var probe struct {
		Type      string          `json:"type"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := json.Unmarshal(s, &probe); err != nil {
		return SignalUnknown
	}
	switch {
	case probe.Type == string(SignalOffer):
		return SignalOffer
	case probe.Type == string(SignalAnswer):
		return SignalAnswer
	case probe.Type == string(SignalCandidate), len(probe.Candidate) > 0:
		return SignalCandidate
	}
	return SignalUnknown
}
