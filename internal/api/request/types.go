package request

// CreateGuestRequest is the request body for creating a guest user
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreatePartyRequest is the request body for creating a party.
// A zero MaxMembers selects the server default.
type CreatePartyRequest struct {
	Name       string `json:"name"`
	MaxMembers int    `json:"max_members,omitempty"`
}

// JoinPartyRequest is the request body for joining a party
type JoinPartyRequest struct {
	InviteCode string `json:"invite_code"`
}
