package models

import "time"

// Event types delivered to live connections.
const (
	EventWorkflowStarted    = "workflow.started"
	EventTournamentNotFound = "tournament.notFound"
	EventPlayersAssigned    = "players.assigned"
	EventTeamsLocked        = "teams.locked"
	EventTeamCreated        = "team.created"
	EventRoleClaimed        = "role.claimed"
	EventRoleRemoved        = "role.removed"
	EventTeamDeleted        = "team.deleted"
)

// Envelope is the wire shape every connection receives.
type Envelope struct {
	Type         string `json:"type"`
	Data         any    `json:"data"`
	TournamentID string `json:"tournamentId,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Connection is a live client subscription row. Rows expire on their own
// (TTL) and are additionally pruned when a delivery bounces.
type Connection struct {
	ConnectionID string    `json:"connectionId"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// EventRecord is the immutable audit row appended for each broadcast.
type EventRecord struct {
	Type         string
	TournamentID string
	CausedBy     string
	Payload      []byte
	CreatedAt    time.Time
}

// UserProfile is what the profile collaborator stores per user; only the
// display name matters here.
type UserProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}
