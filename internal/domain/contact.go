package domain

import "time"

// Contact is a full contact-form submission.
type Contact struct {
	ID         string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Company    string
	Service    string
	Timeline   string
	Message    string
	Consent    bool
	Newsletter bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QuickContact is the short "call me back" variant of the contact form.
type QuickContact struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Service   string
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
