package response

import (
	"encoding/json"
	"time"

	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/services/auth"
	"github.com/mcoot/convoy/internal/services/party"
)

// User represents a user in API responses
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		IsGuest:     u.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:      UserFromModel(&s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// CreateParty is the response for a newly created party
type CreateParty struct {
	PartyID    string `json:"party_id"`
	InviteCode string `json:"invite_code"`
	QRCode     string `json:"qr_code"`
}

// CreatePartyFromResult converts a party.CreateResult
func CreatePartyFromResult(r *party.CreateResult) CreateParty {
	return CreateParty{
		PartyID:    string(r.PartyID),
		InviteCode: string(r.InviteCode),
		QRCode:     r.QRCode,
	}
}

// Success acknowledges a mutation with no other payload
type Success struct {
	Success bool `json:"success"`
}

// Member represents a party member
type Member struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
}

// MemberFromModel converts model.Member
func MemberFromModel(m model.Member) Member {
	return Member{
		UserID:   string(m.UserID),
		JoinedAt: m.JoinedAt,
		Role:     string(m.Role),
		Status:   string(m.Status),
	}
}

// MembersFromModel converts a member list, never returning nil
func MembersFromModel(members []model.Member) []Member {
	result := make([]Member, 0, len(members))
	for _, m := range members {
		result = append(result, MemberFromModel(m))
	}
	return result
}

// PartyState represents trip progress
type PartyState struct {
	Status               string     `json:"status"`
	CurrentWaypointIndex int        `json:"current_waypoint_index"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	PausedAt             *time.Time `json:"paused_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// PartyStats represents trip counters
type PartyStats struct {
	TotalDistance  float64 `json:"total_distance"`
	TotalTime      float64 `json:"total_time"`
	AverageSpeed   float64 `json:"average_speed"`
	StopsCompleted int     `json:"stops_completed"`
}

// PendingChange represents a route change awaiting approval
type PendingChange struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	RequestedBy string          `json:"requested_by"`
	RequestedAt time.Time       `json:"requested_at"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Party represents a full party document
type Party struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	HostID         string          `json:"host_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	MaxMembers     int             `json:"max_members"`
	InviteCode     string          `json:"invite_code"`
	QRCode         string          `json:"qr_code"`
	Members        []Member        `json:"members"`
	CurrentState   PartyState      `json:"current_state"`
	PendingChanges []PendingChange `json:"pending_changes"`
	Stats          PartyStats      `json:"stats"`
}

// PartyFromModel converts model.Party
func PartyFromModel(p *model.Party) Party {
	changes := make([]PendingChange, 0, len(p.PendingChanges))
	for _, c := range p.PendingChanges {
		changes = append(changes, PendingChange{
			ID:          c.ID,
			Type:        string(c.Type),
			RequestedBy: string(c.RequestedBy),
			RequestedAt: c.RequestedAt,
			Status:      string(c.Status),
			Data:        c.Data,
		})
	}

	return Party{
		ID:         string(p.ID),
		Name:       p.Name,
		HostID:     string(p.HostID),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		MaxMembers: p.MaxMembers,
		InviteCode: string(p.InviteCode),
		QRCode:     p.QRCode,
		Members:    MembersFromModel(p.Members),
		CurrentState: PartyState{
			Status:               string(p.CurrentState.Status),
			CurrentWaypointIndex: p.CurrentState.CurrentWaypointIndex,
			StartedAt:            p.CurrentState.StartedAt,
			PausedAt:             p.CurrentState.PausedAt,
			CompletedAt:          p.CurrentState.CompletedAt,
		},
		PendingChanges: changes,
		Stats: PartyStats{
			TotalDistance:  p.Stats.TotalDistance,
			TotalTime:      p.Stats.TotalTime,
			AverageSpeed:   p.Stats.AverageSpeed,
			StopsCompleted: p.Stats.StopsCompleted,
		},
	}
}

// PartyResponse wraps a party document
type PartyResponse struct {
	Party Party `json:"party"`
}

// MembersResponse wraps a member list
type MembersResponse struct {
	Members []Member `json:"members"`
}

// Health is the health check response
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
