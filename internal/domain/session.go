// Package domain contains core domain types for the team console.
package domain

// Session is the authenticated user's identity and bearer token.
type Session struct {
	Token       string `json:"token"`
	UUID        string `json:"uuid"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsSuperuser bool   `json:"is_superuser"`
}

// DisplayName returns "First Last" when known, otherwise the email.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	name := s.FirstName
	if s.LastName != "" {
		if name != "" {
			name += " "
		}
		name += s.LastName
	}
	if name == "" {
		return s.Email
	}
	return name
}

// Credentials are submitted to the login and register endpoints.
// Exactly one of Password or Code is expected.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Validate checks required fields.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if c.Password == "" && c.Code == "" {
		return &ValidationError{Field: "password", Message: "password or code is required"}
	}
	return nil
}
