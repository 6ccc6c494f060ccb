package models

import (
	"strings"
	"time"
)

// OpenSlot is the sentinel occupant of a role nobody holds.
const OpenSlot = "Open"

// Role is a named position on a team. The set is closed; anything a client
// sends is normalized through ParseRole before it touches a record.
type Role string

const (
	RoleTop     Role = "Top"
	RoleJungle  Role = "Jungle"
	RoleMid     Role = "Mid"
	RoleBot     Role = "Bot"
	RoleSupport Role = "Support"
)

// AllRoles lists every valid role in display order.
func AllRoles() []Role {
	return []Role{RoleTop, RoleJungle, RoleMid, RoleBot, RoleSupport}
}

// ParseRole normalizes a client-supplied role name to its canonical form.
func ParseRole(value string) (Role, bool) {
	switch toTitle(value) {
	case string(RoleTop):
		return RoleTop, true
	case string(RoleJungle):
		return RoleJungle, true
	case string(RoleMid):
		return RoleMid, true
	case string(RoleBot):
		return RoleBot, true
	case string(RoleSupport):
		return RoleSupport, true
	}
	return "", false
}

func toTitle(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Commitment signals how confident an occupant is about showing up.
type Commitment string

const (
	CommitmentMaybe Commitment = "maybe"
	CommitmentAllIn Commitment = "all_in"
)

// ParseCommitment validates a client-supplied commitment level. The empty
// string is accepted and means "caller did not specify".
func ParseCommitment(value string) (Commitment, bool) {
	switch Commitment(value) {
	case "":
		return "", true
	case CommitmentMaybe:
		return CommitmentMaybe, true
	case CommitmentAllIn:
		return CommitmentAllIn, true
	}
	return "", false
}

// TeamStatus is the team-level state. Locked is terminal.
type TeamStatus string

const (
	TeamOpen   TeamStatus = "open"
	TeamLocked TeamStatus = "locked"
)

// Team is one roster for one tournament. Members maps every role to a user
// id or OpenSlot. Version backs the compare-and-set write path; two
// concurrent single-role mutations on the same record serialize instead of
// clobbering each other.
type Team struct {
	TeamID         string              `json:"teamId"`
	TournamentID   string              `json:"tournamentId"`
	DisplayName    string              `json:"displayName"`
	CaptainID      string              `json:"captainId"`
	CreatedBy      string              `json:"createdBy"`
	CreatedAt      time.Time           `json:"createdAt"`
	Status         TeamStatus          `json:"status"`
	Members        map[Role]string     `json:"members"`
	MemberStatuses map[Role]Commitment `json:"memberStatuses"`
	DraftProposal  *DraftProposal      `json:"draftProposal,omitempty"`
	Version        int64               `json:"version"`
}

// OpenMembers returns a members map with every role open.
func OpenMembers() map[Role]string {
	members := make(map[Role]string, len(AllRoles()))
	for _, role := range AllRoles() {
		members[role] = OpenSlot
	}
	return members
}

// Occupant returns the user holding a role, or "" when the slot is open.
func (t *Team) Occupant(role Role) string {
	user := t.Members[role]
	if user == "" || user == OpenSlot {
		return ""
	}
	return user
}

// RoleOf returns the role a user currently holds on this team, if any.
func (t *Team) RoleOf(userID string) (Role, bool) {
	for _, role := range AllRoles() {
		if t.Members[role] == userID {
			return role, true
		}
	}
	return "", false
}

// OccupantIDs returns the distinct user ids currently on the roster.
func (t *Team) OccupantIDs() []string {
	var ids []string
	for _, role := range AllRoles() {
		if user := t.Occupant(role); user != "" {
			ids = append(ids, user)
		}
	}
	return ids
}

// IsCaptain reports whether the user founded or owns this team.
func (t *Team) IsCaptain(userID string) bool {
	return userID != "" && (userID == t.CaptainID || userID == t.CreatedBy)
}

// MembershipRow is the denormalized reverse lookup answering "is this user
// already on a team in this tournament" with a single read. It exists if and
// only if the user occupies a role on the referenced team.
type MembershipRow struct {
	UserID       string    `json:"userId"`
	TournamentID string    `json:"tournamentId"`
	TeamID       string    `json:"teamId"`
	Role         Role      `json:"role"`
	IsCaptain    bool      `json:"isCaptain"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TeamKey is the composite team reference stored in logs and audit records.
func (m *MembershipRow) TeamKey() string {
	return m.TournamentID + "#" + m.TeamID
}
