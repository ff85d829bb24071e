package platform

import (
	"fmt"
	"strings"

	"sealtalk/domain"

	"github.com/golang-jwt/jwt/v5"
)

const fallbackDisplayName = "Anonymous Seal"

// ParseIdentity reads the caller identity out of a platform access token.
// The signature is not checked here: the platform verifies it on every
// request, the client only needs the claims for display denormalization.
func ParseIdentity(accessToken string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return domain.Identity{}, fmt.Errorf("parsing access token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return domain.Identity{}, fmt.Errorf("access token has no subject")
	}

	email, _ := claims["email"].(string)
	meta, _ := claims["user_metadata"].(map[string]any)
	name, _ := meta["display_name"].(string)
	avatar, _ := meta["avatar_url"].(string)
	anonymous, _ := meta["is_anonymous"].(bool)

	// Same fallback chain as the web client: metadata name, then the email
	// local part, then the anonymous placeholder.
	if name == "" && email != "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if name == "" {
		name = fallbackDisplayName
	}

	return domain.Identity{
		ID:          sub,
		DisplayName: name,
		AvatarRef:   avatar,
		Anonymous:   anonymous,
	}, nil
}
