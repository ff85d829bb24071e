package domain

// Identity is the caller identity supplied by the authentication
// collaborator at session start. The feed treats it as a read-only value.
type Identity struct {
	ID          string
	DisplayName string
	AvatarRef   string
	Anonymous   bool
}
