package models

import "time"

// TournamentStatus values mirror what the catalog feed produces.
type TournamentStatus string

const (
	TournamentUpcoming TournamentStatus = "upcoming"
	TournamentActive   TournamentStatus = "active"
	TournamentClosed   TournamentStatus = "closed"
	TournamentLocked   TournamentStatus = "locked"
)

// Tournament is the catalog record the assignment workflow loads.
type Tournament struct {
	TournamentID string           `json:"tournamentId"`
	Name         string           `json:"name,omitempty"`
	StartTime    string           `json:"startTime"`
	Region       string           `json:"region,omitempty"`
	Status       TournamentStatus `json:"status,omitempty"`
	Bracket      string           `json:"bracket,omitempty"`
}

// RegistrationStatus is the per-player assignment state.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationAssigned RegistrationStatus = "assigned"
)

// Registration is a player's intent to play a tournament. The assign stage
// flips pending registrations to assigned and binds them to a team.
type Registration struct {
	TournamentID   string             `json:"tournamentId"`
	PlayerID       string             `json:"playerId"`
	PreferredRoles []string           `json:"preferredRoles,omitempty"`
	Availability   string             `json:"availability,omitempty"`
	TeamID         string             `json:"teamId,omitempty"`
	Status         RegistrationStatus `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
}
