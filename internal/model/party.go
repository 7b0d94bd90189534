package model

import (
	"encoding/json"
	"time"
)

// PartyID uniquely identifies a party
type PartyID string

// InviteCode is the short shared secret required to join a party
type InviteCode string

// DefaultMaxMembers is the capacity used when a party is created without one
const DefaultMaxMembers = 10

// PartyStatus is the lifecycle status of a party
type PartyStatus string

const (
	PartyStatusWaiting   PartyStatus = "waiting" // Created, trip not started
	PartyStatusActive    PartyStatus = "active"
	PartyStatusPaused    PartyStatus = "paused"
	PartyStatusCompleted PartyStatus = "completed"
	PartyStatusCancelled PartyStatus = "cancelled"
	PartyStatusDisbanded PartyStatus = "disbanded" // Host-initiated, terminal
	PartyStatusEnded     PartyStatus = "ended"
)

var partyTransitions = map[PartyStatus][]PartyStatus{
	PartyStatusWaiting: {PartyStatusActive, PartyStatusCancelled, PartyStatusDisbanded, PartyStatusEnded},
	PartyStatusActive:  {PartyStatusPaused, PartyStatusCompleted, PartyStatusCancelled, PartyStatusDisbanded, PartyStatusEnded},
	PartyStatusPaused:  {PartyStatusActive, PartyStatusCancelled, PartyStatusDisbanded, PartyStatusEnded},
}

// IsTerminal reports whether no further transitions are possible from s
func (s PartyStatus) IsTerminal() bool {
	return len(partyTransitions[s]) == 0
}

// AcceptsMembers reports whether a party in this status can still be joined
func (s PartyStatus) AcceptsMembers() bool {
	return s != PartyStatusDisbanded && s != PartyStatusEnded
}

// CanTransitionTo reports whether s -> next is a legal state change
func (s PartyStatus) CanTransitionTo(next PartyStatus) bool {
	for _, allowed := range partyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MemberRole distinguishes the host from ordinary members
type MemberRole string

const (
	RoleHost   MemberRole = "host"
	RoleMember MemberRole = "member"
)

// MemberStatus is a member's presence within the party
type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
	MemberStatusLeft     MemberStatus = "left"
)

// Member represents a user's membership in a party
type Member struct {
	UserID   UserID
	JoinedAt time.Time
	Role     MemberRole
	Status   MemberStatus
}

// PartyState is the trip progress of a party
type PartyState struct {
	Status               PartyStatus
	CurrentWaypointIndex int
	StartedAt            *time.Time
	PausedAt             *time.Time
	CompletedAt          *time.Time
}

// PartyStats are aggregate trip counters, maintained by trip tracking
type PartyStats struct {
	TotalDistance  float64 // metres
	TotalTime      float64 // seconds
	AverageSpeed   float64 // metres per second
	StopsCompleted int
}

// ChangeType is the kind of route change a member can request
type ChangeType string

const (
	ChangeAddStop           ChangeType = "add_stop"
	ChangeModifyRoute       ChangeType = "modify_route"
	ChangeSkipWaypoint      ChangeType = "skip_waypoint"
	ChangeChangeDestination ChangeType = "change_destination"
)

// ChangeStatus is the host's decision on a pending change
type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeApproved ChangeStatus = "approved"
	ChangeDeclined ChangeStatus = "declined"
)

// PendingChange is a route change awaiting host approval
type PendingChange struct {
	ID          string
	Type        ChangeType
	RequestedBy UserID
	RequestedAt time.Time
	Status      ChangeStatus
	Data        json.RawMessage
}

// Party is a bounded group of users sharing a trip
type Party struct {
	ID             PartyID
	Name           string
	HostID         UserID
	CreatedAt      time.Time
	MaxMembers     int
	InviteCode     InviteCode
	QRCode         string // data URI of InviteCode
	Members        []Member
	CurrentState   PartyState
	PendingChanges []PendingChange
	Stats          PartyStats
	UpdatedAt      time.Time

	// Version is the store revision this snapshot was read at
	Version int64
}

// GetMember returns the member with the given user ID, or nil if not found
func (p *Party) GetMember(userID UserID) *Member {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i]
		}
	}
	return nil
}

// GetHost returns the host member, or nil if the party has none
func (p *Party) GetHost() *Member {
	for i := range p.Members {
		if p.Members[i].Role == RoleHost {
			return &p.Members[i]
		}
	}
	return nil
}

// IsMember reports whether the user currently belongs to the party
func (p *Party) IsMember(userID UserID) bool {
	return p.GetMember(userID) != nil
}

// IsFull reports whether the party has reached capacity
func (p *Party) IsFull() bool {
	return len(p.Members) >= p.MaxMembers
}

// RemoveMember drops the user's entry, reporting whether one was removed
func (p *Party) RemoveMember(userID UserID) bool {
	for i, m := range p.Members {
		if m.UserID == userID {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the party
func (p *Party) Clone() *Party {
	c := *p
	if p.Members != nil {
		c.Members = make([]Member, len(p.Members))
		copy(c.Members, p.Members)
	}
	if p.PendingChanges != nil {
		c.PendingChanges = make([]PendingChange, len(p.PendingChanges))
		for i, pc := range p.PendingChanges {
			c.PendingChanges[i] = pc
			if pc.Data != nil {
				c.PendingChanges[i].Data = append(json.RawMessage(nil), pc.Data...)
			}
		}
	}
	c.CurrentState.StartedAt = cloneTime(p.CurrentState.StartedAt)
	c.CurrentState.PausedAt = cloneTime(p.CurrentState.PausedAt)
	c.CurrentState.CompletedAt = cloneTime(p.CurrentState.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
