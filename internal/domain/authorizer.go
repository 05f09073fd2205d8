package domain

// Action is a flat-scoped operation subject to authorization.
// Creating a flat is not listed: any authenticated user may do it.
type Action string

// Flat-scoped actions.
const (
	ActionViewFlat       Action = "view-flat"
	ActionViewRequests   Action = "view-requests"
	ActionResolveRequest Action = "resolve-request"
	ActionCreateEvent    Action = "create-event"
	ActionViewEvents     Action = "view-events"
	ActionDeleteFlat     Action = "delete-flat"
)

// DeletePolicy decides who may delete a flat.
type DeletePolicy string

const (
	// DeleteByCreator restricts deletion to the member who created the flat.
	DeleteByCreator DeletePolicy = "creator"
	// DeleteByMember lets any current member delete the flat.
	DeleteByMember DeletePolicy = "member"
)

// ParseDeletePolicy converts a string to a DeletePolicy.
func ParseDeletePolicy(s string) (DeletePolicy, bool) {
	switch DeletePolicy(s) {
	case DeleteByCreator, DeleteByMember:
		return DeletePolicy(s), true
	default:
		return "", false
	}
}

// CanAct decides whether userID may perform action on the flat described by
// m. It is a pure function of its arguments.
func CanAct(userID string, m MembershipSnapshot, action Action, policy DeletePolicy) bool {
	if !m.IsMember(userID) {
		return false
	}

	switch action {
	case ActionViewFlat, ActionViewRequests, ActionResolveRequest, ActionCreateEvent, ActionViewEvents:
		return true
	case ActionDeleteFlat:
		if policy == DeleteByMember {
			return true
		}
		// Anything other than an explicit member policy falls back to creator-only.
		return userID == m.CreatorID
	default:
		return false
	}
}
