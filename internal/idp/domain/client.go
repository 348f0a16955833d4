package domain

import (
	"slices"
	"time"
)

// Client is a registered relying party. ID is the internal row id; ClientID
// is the public identifier presented by the client.
type Client struct {
	ID                     string
	OrganizationID         string
	Name                   string
	ClientID               string
	SecretHash             string // argon2id PHC string, empty for public clients
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	IsConfidential         bool
	PKCEEnforced           bool
	CreatedAt              time.Time
}

// AllowsRedirect reports whether uri is registered exactly as given.
func (c Client) AllowsRedirect(uri string) bool {
	return uri != "" && slices.Contains(c.RedirectURIs, uri)
}

func (c Client) AllowsPostLogoutRedirect(uri string) bool {
	return uri != "" && slices.Contains(c.PostLogoutRedirectURIs, uri)
}
