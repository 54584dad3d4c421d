package domain

// Connection is a live transport session bound to a user.
type Connection struct {
	ID          ConnID
	UserID      UserID
	DisplayName string
}

func NewConnection(id ConnID, user UserID, displayName string) Connection {
	if displayName == "" {
		displayName = user.String()
	}
	return Connection{
		ID:          id,
		UserID:      user,
		DisplayName: displayName,
	}
}

type PresenceEntry struct {
	UserID UserID `json:"userId"`
	Online bool   `json:"online"`
}
