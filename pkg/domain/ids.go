package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed identifiers keep visit, organization, and people ids from being
// swapped at call sites. The compiler rejects cross-type assignment.
type (
	VisitID     uuid.UUID
	OrgID       uuid.UUID
	BranchID    uuid.UUID
	ClientID    uuid.UUID
	CaregiverID uuid.UUID
	ActorID     uuid.UUID
)

// parseUUID is the single trust-boundary entry for id parsing. It rejects
// empty input, malformed UUIDs, and the nil UUID.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("id is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil id is not allowed")
	}
	return id, nil
}

func ParseVisitID(s string) (VisitID, error) {
	id, err := parseUUID(s)
	return VisitID(id), err
}

func ParseOrgID(s string) (OrgID, error) {
	id, err := parseUUID(s)
	return OrgID(id), err
}

func ParseBranchID(s string) (BranchID, error) {
	id, err := parseUUID(s)
	return BranchID(id), err
}

func ParseClientID(s string) (ClientID, error) {
	id, err := parseUUID(s)
	return ClientID(id), err
}

func ParseCaregiverID(s string) (CaregiverID, error) {
	id, err := parseUUID(s)
	return CaregiverID(id), err
}

func ParseActorID(s string) (ActorID, error) {
	id, err := parseUUID(s)
	return ActorID(id), err
}

func (id VisitID) String() string     { return uuid.UUID(id).String() }
func (id OrgID) String() string       { return uuid.UUID(id).String() }
func (id BranchID) String() string    { return uuid.UUID(id).String() }
func (id ClientID) String() string    { return uuid.UUID(id).String() }
func (id CaregiverID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string     { return uuid.UUID(id).String() }

func (id VisitID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id BranchID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CaregiverID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshalling renders ids as canonical UUID strings in JSON and
// cache payloads instead of raw byte arrays.
func (id VisitID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id OrgID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id BranchID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ClientID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CaregiverID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *VisitID) UnmarshalText(b []byte) error {
	parsed, err := ParseVisitID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OrgID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrgID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BranchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBranchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ClientID) UnmarshalText(b []byte) error {
	parsed, err := ParseClientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CaregiverID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaregiverID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	parsed, err := ParseActorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewVisitID mints a random visit id. The scheduling collaborator normally
// owns id creation; this exists for tests and seed tooling.
func NewVisitID() VisitID { return VisitID(uuid.New()) }

// NewCaregiverID mints a random caregiver id for tests and seed tooling.
func NewCaregiverID() CaregiverID { return CaregiverID(uuid.New()) }
