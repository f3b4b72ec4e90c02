package team

import "time"

// Team is a registered team's profile. Credentials are handled outside
// this service.
type Team struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Institution *string   `json:"institution,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateTeamRequest represents the data needed to register a team.
type CreateTeamRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Institution *string `json:"institution,omitempty"`
}
