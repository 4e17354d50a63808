// Package model defines the documents held in the store and the public
// projections serialized outward.
package model

import "time"

// Provider identifies where an identity's primary credential came from.
type Provider string

const (
	// ProviderLocal is a password-registered identity.
	ProviderLocal Provider = "local"
	// ProviderGoogle is a Google OAuth identity.
	ProviderGoogle Provider = "google"
	// ProviderGitHub is a GitHub OAuth identity.
	ProviderGitHub Provider = "github"
)

// LocalCredential holds the bcrypt hash for a password identity.
type LocalCredential struct {
	PasswordHash string `json:"password_hash"`
}

// GoogleCredential holds Google-issued identity data.
type GoogleCredential struct {
	SubjectID string `json:"subject_id"`
}

// GitHubCredential holds GitHub-issued identity data. The access token is
// retained so activity fetches can act on the user's behalf.
type GitHubCredential struct {
	SubjectID   string `json:"subject_id"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// User is one identity document. Email is unique across all identities and
// is the cross-provider merge key. Exactly the credential variants the user
// has linked are non-nil; the primary provider never changes after creation.
type User struct {
	ID            string            `json:"id"`
	Provider      Provider          `json:"provider"`
	Email         string            `json:"email"`
	Username      string            `json:"username"`
	SkillsOffered []string          `json:"skills_offered"`
	SkillsNeeded  []string          `json:"skills_needed"`
	KarmaPoints   int               `json:"karma_points"`
	SkillProgress map[string]int    `json:"skill_progress"`
	CreatedAt     time.Time         `json:"created_at"`
	Local         *LocalCredential  `json:"local,omitempty"`
	Google        *GoogleCredential `json:"google,omitempty"`
	GitHub        *GitHubCredential `json:"github,omitempty"`
}

// LinkedProviders lists every provider the user has a credential for.
func (u *User) LinkedProviders() []Provider {
	var linked []Provider
	if u.Local != nil {
		linked = append(linked, ProviderLocal)
	}
	if u.Google != nil {
		linked = append(linked, ProviderGoogle)
	}
	if u.GitHub != nil {
		linked = append(linked, ProviderGitHub)
	}
	return linked
}

// GitHubLogin returns the linked GitHub username and access token, if any.
func (u *User) GitHubLogin() (username, token string, ok bool) {
	if u.GitHub == nil || u.GitHub.AccessToken == "" {
		return "", "", false
	}
	return u.GitHub.Username, u.GitHub.AccessToken, true
}

// PublicUser is the outward projection of a User. Secret material is
// structurally absent, not stripped after the fact.
type PublicUser struct {
	ID             string         `json:"id"`
	Provider       Provider       `json:"provider"`
	Email          string         `json:"email"`
	Username       string         `json:"username"`
	SkillsOffered  []string       `json:"skills_offered"`
	SkillsNeeded   []string       `json:"skills_needed"`
	KarmaPoints    int            `json:"karma_points"`
	SkillProgress  map[string]int `json:"skill_progress"`
	CreatedAt      time.Time      `json:"created_at"`
	GitHubUsername string         `json:"github_username,omitempty"`
	Linked         []Provider     `json:"linked_providers"`
}

// PublicView builds the outward projection for u.
func (u *User) PublicView() PublicUser {
	view := PublicUser{
		ID:            u.ID,
		Provider:      u.Provider,
		Email:         u.Email,
		Username:      u.Username,
		SkillsOffered: u.SkillsOffered,
		SkillsNeeded:  u.SkillsNeeded,
		KarmaPoints:   u.KarmaPoints,
		SkillProgress: u.SkillProgress,
		CreatedAt:     u.CreatedAt,
		Linked:        u.LinkedProviders(),
	}
	if u.GitHub != nil {
		view.GitHubUsername = u.GitHub.Username
	}
	return view
}
