package domain

import (
	"strings"
	"time"
)

// User is a dashboard account bound to one company.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Company      string    `json:"company"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser normalises the email and stamps the creation time.
func NewUser(email, passwordHash, company string) User {
	return User{
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Company:      strings.TrimSpace(company),
		CreatedAt:    time.Now(),
	}
}

// WithCompany returns a copy of the user bound to company.
func (u User) WithCompany(company string) User {
	u.Company = strings.TrimSpace(company)
	return u
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
