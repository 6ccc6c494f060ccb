package roster

import (
	"context"
	"testing"

	"github.com/nikhil/clashforge/internal/apperrors"
	"github.com/nikhil/clashforge/internal/models"
)

func TestGetDraftMembersOnly(t *testing.T) {
	store := newFakeStore()
	team := seedTeam(store, "u-1", map[models.Role]string{models.RoleMid: "u-1"})
	team.DraftProposal = &models.DraftProposal{TournamentID: "t-1", TeamID: "team-1", Notes: "ban their jungle"}
	engine := newTestEngine(store, &fakeDirectory{})

	draft, err := engine.GetDraft(context.Background(), "t-1", "team-1", "u-1")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if draft.Notes != "ban their jungle" {
		t.Errorf("notes = %q", draft.Notes)
	}

	_, err = engine.GetDraft(context.Background(), "t-1", "team-1", "outsider")
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("outsider err = %v, want forbidden", err)
	}
}

func TestGetDraftMissing(t *testing.T) {
	store := newFakeStore()
	seedTeam(store, "u-1", map[models.Role]string{models.RoleMid: "u-1"})
	engine := newTestEngine(store, &fakeDirectory{})

	_, err := engine.GetDraft(context.Background(), "t-1", "team-1", "u-1")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestSaveDraftNormalizesListLengths(t *testing.T) {
	store := newFakeStore()
	seedTeam(store, "u-1", map[models.Role]string{models.RoleMid: "u-1"})
	engine := newTestEngine(store, &fakeDirectory{})

	incoming := &models.DraftProposal{
		OurSide: models.DraftSide{
			FirstRoundBans:   []string{"a", "b", "c", "d", "e"},
			SecondRoundBans:  []string{"f"},
			FirstRoundPicks:  nil,
			SecondRoundPicks: []string{"g", "h", "i"},
		},
		Notes: "scrim notes",
	}
	draft, err := engine.SaveDraft(context.Background(), "t-1", "team-1", "u-1", incoming)
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if got := len(draft.OurSide.FirstRoundBans); got != 3 {
		t.Errorf("firstRoundBans length = %d, want 3", got)
	}
	if got := len(draft.OurSide.SecondRoundBans); got != 2 {
		t.Errorf("secondRoundBans length = %d, want 2", got)
	}
	if got := len(draft.OurSide.FirstRoundPicks); got != 3 {
		t.Errorf("firstRoundPicks length = %d, want 3", got)
	}
	if got := len(draft.OurSide.SecondRoundPicks); got != 2 {
		t.Errorf("secondRoundPicks length = %d, want 2", got)
	}
	if draft.UpdatedBy != "u-1" {
		t.Errorf("updatedBy = %q, want u-1", draft.UpdatedBy)
	}

	saved := store.teams[teamKey("t-1", "team-1")]
	if saved.DraftProposal == nil || saved.DraftProposal.Notes != "scrim notes" {
		t.Errorf("stored draft = %+v", saved.DraftProposal)
	}
}

func TestSaveDraftKeepsNotesWhenOmitted(t *testing.T) {
	store := newFakeStore()
	team := seedTeam(store, "u-1", map[models.Role]string{models.RoleMid: "u-1"})
	team.DraftProposal = &models.DraftProposal{Notes: "keep these"}
	engine := newTestEngine(store, &fakeDirectory{})

	draft, err := engine.SaveDraft(context.Background(), "t-1", "team-1", "u-1", &models.DraftProposal{})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if draft.Notes != "keep these" {
		t.Errorf("notes = %q, want prior notes kept", draft.Notes)
	}
}

func TestSaveDraftMembersOnly(t *testing.T) {
	store := newFakeStore()
	seedTeam(store, "u-1", map[models.Role]string{models.RoleMid: "u-1"})
	engine := newTestEngine(store, &fakeDirectory{})

	_, err := engine.SaveDraft(context.Background(), "t-1", "team-1", "outsider", &models.DraftProposal{})
	if !apperrors.IsKind(err, apperrors.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}
