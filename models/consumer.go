package models

import "time"

// Consumer is the account a license is bound to. AccountNumber is the
// external lookup key presented by unattended clients.
type Consumer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Country       string    `json:"country,omitempty"`
	AccountNumber string    `json:"accountNumber"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
