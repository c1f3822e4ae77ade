package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/itchan-dev/authgate/shared/domain"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	IdentityId   string `json:"identity_id"`
	Id           string `json:"id"`
	Provider     string `json:"provider"`
	IdentityData struct {
		Email string `json:"email"`
	} `json:"identity_data"`
}

type userResponse struct {
	Id               string             `json:"id"`
	Email            string             `json:"email"`
	Role             string             `json:"role"`
	Identities       []identityResponse `json:"identities"`
	EmailConfirmedAt *time.Time         `json:"email_confirmed_at"`
	CreatedAt        time.Time          `json:"created_at"`
}

func (u *userResponse) toDomain() *domain.User {
	if u == nil || u.Id == "" {
		return nil
	}
	user := &domain.User{
		Id:               u.Id,
		Email:            u.Email,
		Role:             u.Role,
		EmailConfirmedAt: u.EmailConfirmedAt,
		CreatedAt:        u.CreatedAt,
	}
	// nil stays nil: a missing identities field is not the same as an empty one
	if u.Identities != nil {
		user.Identities = make([]domain.Identity, 0, len(u.Identities))
		for _, i := range u.Identities {
			id := i.IdentityId
			if id == "" {
				id = i.Id
			}
			user.Identities = append(user.Identities, domain.Identity{Id: id, Provider: i.Provider, Email: i.IdentityData.Email})
		}
	}
	return user
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

func (t *tokenResponse) toDomain(now time.Time) *domain.Token {
	if t.AccessToken == "" {
		return nil
	}
	tok := &domain.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	switch {
	case t.ExpiresAt > 0:
		tok.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		tok.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if u := t.User.toDomain(); u != nil {
		tok.User = *u
	}
	return tok
}

// signUpResponse is either a session (auto-confirm on) or a bare user.
type signUpResponse struct {
	tokenResponse
	userResponse
}

// SignInWithPassword exchanges credentials for a session.
func (c *APIClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.Token, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", credentials{email, password}, "", &resp); err != nil {
		return nil, err
	}
	tok := resp.toDomain(time.Now())
	if tok == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "no session in response"}
	}
	return tok, nil
}

// RefreshToken trades a refresh token for a new session.
func (c *APIClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error) {
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", body, "", &resp); err != nil {
		return nil, err
	}
	tok := resp.toDomain(time.Now())
	if tok == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "no session in response"}
	}
	return tok, nil
}

// SignUp registers a new account. Token is nil unless the project confirms
// emails automatically.
func (c *APIClient) SignUp(ctx context.Context, email, password string) (*domain.SignUpResult, error) {
	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/signup", credentials{email, password}, "", &resp); err != nil {
		return nil, err
	}

	result := &domain.SignUpResult{}
	if tok := resp.tokenResponse.toDomain(time.Now()); tok != nil {
		result.Token = tok
		result.User = &tok.User
		return result, nil
	}
	result.User = resp.userResponse.toDomain()
	return result, nil
}

// GetUser returns the user owning accessToken.
func (c *APIClient) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, &resp); err != nil {
		return nil, err
	}
	user := resp.toDomain()
	if user == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "no user in response"}
	}
	return user, nil
}

// Logout revokes the refresh tokens of this session only.
func (c *APIClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout?scope=local", nil, accessToken, nil)
}
