package event

import (
	"fmt"
	"strings"
)

// Role is the part a code plays in cycle reconstruction.
// The numeric order is the processing priority for events sharing a timestamp.
type Role int

const (
	RoleUnknown Role = iota
	RoleOpen
	RoleServiceStart
	RoleMarker
	RoleServiceEnd
	RoleClose
)

var roleNames = map[Role]string{
	RoleUnknown:      "unknown",
	RoleOpen:         "open",
	RoleServiceStart: "service_start",
	RoleMarker:       "marker",
	RoleServiceEnd:   "service_end",
	RoleClose:        "close",
}

// String returns the config name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Priority orders roles at equal timestamps; unknown codes sort last.
func (r Role) Priority() int {
	if r == RoleUnknown {
		return int(RoleClose) + 1
	}
	return int(r)
}

// ParseRole resolves a config role name.
func ParseRole(value string) (Role, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for role, name := range roleNames {
		if role != RoleUnknown && name == value {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, value)
}

// Entry describes one code of the vocabulary.
type Entry struct {
	Role Role
	// Kind tags marker events (e.g. "early_green").
	Kind string
}

// Vocabulary maps event codes to their reconstruction role.
type Vocabulary struct {
	entries map[Code]Entry
}

// Default codes of the priority event vocabulary.
const (
	CodeCheckIn      Code = 112
	CodeEarlyGreen   Code = 113
	CodeExtendGreen  Code = 114
	CodeCheckOut     Code = 115
	CodeForceOff     Code = 116
	CodeServiceStart Code = 118
	CodeServiceEnd   Code = 119
)

// DefaultVocabulary returns the controller's priority event codes.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{entries: map[Code]Entry{
		CodeCheckIn:      {Role: RoleOpen, Kind: "check_in"},
		CodeEarlyGreen:   {Role: RoleMarker, Kind: "early_green"},
		CodeExtendGreen:  {Role: RoleMarker, Kind: "extend_green"},
		CodeCheckOut:     {Role: RoleClose, Kind: "check_out"},
		CodeForceOff:     {Role: RoleMarker, Kind: "force_off"},
		CodeServiceStart: {Role: RoleServiceStart, Kind: "service_start"},
		CodeServiceEnd:   {Role: RoleServiceEnd, Kind: "service_end"},
	}}
}

// NewVocabulary validates and builds a vocabulary.
func NewVocabulary(entries map[Code]Entry) (Vocabulary, error) {
	var hasOpen, hasClose bool
	copied := make(map[Code]Entry, len(entries))
	for code, entry := range entries {
		if entry.Role == RoleUnknown {
			return Vocabulary{}, fmt.Errorf("%w: code %d", ErrInvalidRole, code)
		}
		if entry.Kind == "" {
			entry.Kind = entry.Role.String()
		}
		hasOpen = hasOpen || entry.Role == RoleOpen
		hasClose = hasClose || entry.Role == RoleClose
		copied[code] = entry
	}
	if !hasOpen || !hasClose {
		return Vocabulary{}, ErrIncompleteVocabulary
	}
	return Vocabulary{entries: copied}, nil
}

// Lookup returns the entry for a code and whether it is part of the vocabulary.
func (v Vocabulary) Lookup(code Code) (Entry, bool) {
	entry, ok := v.entries[code]
	return entry, ok
}

// Role returns the role of a code, RoleUnknown outside the vocabulary.
func (v Vocabulary) Role(code Code) Role {
	return v.entries[code].Role
}

// Codes returns the number of codes in the vocabulary.
func (v Vocabulary) Codes() int { return len(v.entries) }
