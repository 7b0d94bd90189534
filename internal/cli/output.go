package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// stdout is where command results are written
var stdout io.Writer = os.Stdout

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format, w: stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case CreatedParty:
		o.printCreatedParty(v)
	case PartyResult:
		o.printParty(v.Party)
	case MembersResult:
		o.printMembers(v.Members)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// AuthResult combines user and token
type AuthResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreatedParty response type
type CreatedParty struct {
	PartyID    string `json:"party_id"`
	InviteCode string `json:"invite_code"`
	QRCode     string `json:"qr_code"`
}

// Member response type
type Member struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
}

// PartyState response type
type PartyState struct {
	Status               string `json:"status"`
	CurrentWaypointIndex int    `json:"current_waypoint_index"`
}

// Party response type
type Party struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	HostID       string     `json:"host_id"`
	MaxMembers   int        `json:"max_members"`
	InviteCode   string     `json:"invite_code"`
	Members      []Member   `json:"members"`
	CurrentState PartyState `json:"current_state"`
}

// PartyResult wraps a party
type PartyResult struct {
	Party Party `json:"party"`
}

// MembersResult wraps a member list
type MembersResult struct {
	Members []Member `json:"members"`
}

// SuccessResult acknowledges a mutation
type SuccessResult struct {
	Success bool `json:"success"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printUser(u User) {
	guestStr := "no"
	if u.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "User: %s (%s)\n", u.DisplayName, u.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Token: %s\n", a.Token)
	fmt.Fprintf(o.w, "Expires: %s\n", a.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printCreatedParty(p CreatedParty) {
	fmt.Fprintf(o.w, "Party: %s\n", p.PartyID)
	fmt.Fprintf(o.w, "Invite Code: %s\n", p.InviteCode)
}

func (o *Output) printParty(p Party) {
	fmt.Fprintf(o.w, "Party: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Status: %s\n", p.CurrentState.Status)
	fmt.Fprintf(o.w, "Invite Code: %s\n", p.InviteCode)
	fmt.Fprintf(o.w, "Members (%d/%d):\n", len(p.Members), p.MaxMembers)
	o.printMemberLines(p.Members)
}

func (o *Output) printMembers(members []Member) {
	fmt.Fprintf(o.w, "Members (%d):\n", len(members))
	o.printMemberLines(members)
}

func (o *Output) printMemberLines(members []Member) {
	for _, m := range members {
		fmt.Fprintf(o.w, "  - %s - %s, joined %s\n", m.UserID, m.Role, m.JoinedAt.Format(time.RFC3339))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Storage != "" {
		fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	}
}
