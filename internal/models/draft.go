package models

import "time"

// DraftSide holds one side's plan for the ban/pick phases. List lengths are
// fixed by the tournament format: 3 first-round bans, 2 second-round bans,
// 3 first-round picks, 2 second-round picks.
type DraftSide struct {
	FirstRoundBans   []string `json:"firstRoundBans"`
	SecondRoundBans  []string `json:"secondRoundBans"`
	FirstRoundPicks  []string `json:"firstRoundPicks"`
	SecondRoundPicks []string `json:"secondRoundPicks"`
}

// DraftProposal is the team-scoped planning payload, visible to members only.
type DraftProposal struct {
	TournamentID string    `json:"tournamentId"`
	TeamID       string    `json:"teamId"`
	OurSide      DraftSide `json:"ourSide"`
	EnemySide    DraftSide `json:"enemySide"`
	Notes        string    `json:"notes,omitempty"`
	UpdatedBy    string    `json:"updatedBy"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeDraftSide pads or truncates the incoming lists to the fixed
// lengths so a stored proposal always has a predictable shape.
func NormalizeDraftSide(side DraftSide) DraftSide {
	return DraftSide{
		FirstRoundBans:   normalizeList(side.FirstRoundBans, 3),
		SecondRoundBans:  normalizeList(side.SecondRoundBans, 2),
		FirstRoundPicks:  normalizeList(side.FirstRoundPicks, 3),
		SecondRoundPicks: normalizeList(side.SecondRoundPicks, 2),
	}
}

func normalizeList(values []string, length int) []string {
	out := make([]string, length)
	for i := 0; i < length && i < len(values); i++ {
		out[i] = values[i]
	}
	return out
}
