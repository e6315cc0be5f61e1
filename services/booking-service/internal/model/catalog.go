package model

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

type Service struct {
	ID              string
	Name            string
	Description     string
	DurationMinutes int
	Price           string // decimal text, e.g. "49.90"
	IsActive        bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Vehicle struct {
	ID      string
	OwnerID string
	Make    string
	Model   string
	Year    int
	Plate   string
}

type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      Role
	IsActive  bool
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
