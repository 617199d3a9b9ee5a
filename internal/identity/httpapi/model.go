package httpapi

import "github.com/Geodev122/cogniflow-sub002/internal/identity"

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type userResponse struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata identity.Metadata `json:"user_metadata"`
}

type signUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     identity.Metadata `json:"data"`
}

// signUpResponse covers both provider shapes: a bare identity record when
// confirmation is required, and a full token grant when auto-confirmed.
type signUpResponse struct {
	ID           string        `json:"id"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
	User         *userResponse `json:"user"`
}

// Settings is the provider's public configuration document.
type Settings struct {
	ExternalEmail     bool `json:"external_email"`
	Autoconfirm       bool `json:"autoconfirm"`
	MailerAutoconfirm bool `json:"mailer_autoconfirm"`
	DisableSignup     bool `json:"disable_signup"`
}
