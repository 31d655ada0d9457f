package account

import "time"

// Account represents a registered user of the loyalty program. The phone
// number is the login identity; PINHash is set once the user enrolls a PIN
// and never leaves the process.
type Account struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	PetName     string    `json:"pet_name"`
	PetType     string    `json:"pet_type"`
	PINHash     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
