package meeting

import "fmt"

// Kind is the outcome of meeting detection for one message.
type Kind int

const (
	// NoMeeting means the message does not propose a meeting.
	NoMeeting Kind = iota
	// Free means a slot was proposed and the calendar has no conflict.
	Free
	// Occupied means a slot was proposed but conflicts with the calendar.
	Occupied
	// SuggestionRequired means a meeting was requested without a time;
	// candidate slots are offered instead.
	SuggestionRequired
	// Scheduled means the meeting was already booked from this message.
	Scheduled
)

var kindNames = map[Kind]string{
	NoMeeting:          "no_meeting",
	Free:               "free",
	Occupied:           "occupied",
	SuggestionRequired: "suggestion_required",
	Scheduled:          "scheduled",
}

// ParseKind parses a status name. Unknown names are an error.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return NoMeeting, fmt.Errorf("unknown meeting status %q", s)
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Schedulable reports whether a meeting with this outcome may be booked.
func (k Kind) Schedulable() bool {
	return k == Free
}

// Detected reports whether the outcome should be shown to the user.
func (k Kind) Detected() bool {
	switch k {
	case Free, Occupied, SuggestionRequired, Scheduled:
		return true
	default:
		return false
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("invalid meeting kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
