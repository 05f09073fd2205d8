package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAct(t *testing.T) {
	snap := MembershipSnapshot{
		FlatID:    "flat-1",
		CreatorID: "creator",
		Members:   []string{"creator", "member"},
	}

	memberActions := []Action{
		ActionViewFlat,
		ActionViewRequests,
		ActionResolveRequest,
		ActionCreateEvent,
		ActionViewEvents,
	}

	type canActCase struct {
		name   string
		user   string
		action Action
		policy DeletePolicy
		want   bool
	}

	tests := []canActCase{
		{"creator deletes under creator policy", "creator", ActionDeleteFlat, DeleteByCreator, true},
		{"member cannot delete under creator policy", "member", ActionDeleteFlat, DeleteByCreator, false},
		{"member deletes under member policy", "member", ActionDeleteFlat, DeleteByMember, true},
		{"outsider cannot delete under member policy", "outsider", ActionDeleteFlat, DeleteByMember, false},
		{"unknown policy falls back to creator-only", "member", ActionDeleteFlat, DeletePolicy("anyone"), false},
		{"unknown action is denied", "creator", Action("rename-flat"), DeleteByMember, false},
		{"anonymous is denied", "", ActionViewEvents, DeleteByMember, false},
	}
	for _, a := range memberActions {
		tests = append(tests,
			canActCase{"member " + string(a), "member", a, DeleteByCreator, true},
			canActCase{"outsider " + string(a), "outsider", a, DeleteByMember, false},
		)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAct(tt.user, snap, tt.action, tt.policy))
		})
	}
}

func TestCanAct_FormerCreatorOutsideMembers(t *testing.T) {
	// A creator id that is not in the member set grants nothing.
	snap := MembershipSnapshot{FlatID: "flat-1", CreatorID: "creator", Members: []string{"member"}}
	assert.False(t, CanAct("creator", snap, ActionDeleteFlat, DeleteByCreator))
}

func TestParseDeletePolicy(t *testing.T) {
	p, ok := ParseDeletePolicy("creator")
	assert.True(t, ok)
	assert.Equal(t, DeleteByCreator, p)

	p, ok = ParseDeletePolicy("member")
	assert.True(t, ok)
	assert.Equal(t, DeleteByMember, p)

	_, ok = ParseDeletePolicy("owner")
	assert.False(t, ok)
}
