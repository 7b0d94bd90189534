package redis

import (
	"fmt"

	"github.com/mcoot/convoy/internal/model"
)

// Key prefix for all convoy data
const keyPrefix = "convoy"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for a user's Credentials
func credentialsKey(userID model.UserID) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, userID)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// partyKey returns the Redis key for a Party document
func partyKey(id model.PartyID) string {
	return fmt.Sprintf("%s:party:%s", keyPrefix, id)
}

// inviteKey returns the Redis key for an InviteRecord
func inviteKey(code model.InviteCode) string {
	return fmt.Sprintf("%s:invite:%s", keyPrefix, code)
}
