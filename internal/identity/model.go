package identity

import "time"

// User is a registered account. Email is matched as an exact string.
type User struct {
	ID            string
	FullName      string
	Email         string
	CompanyName   string
	MobileNumber  string
	AgreedToTerms bool
	PasswordHash  []byte
	IsVerified    bool
	// OTPExpiry is advisory; challenges carry their own issuance time.
	OTPExpiry time.Time
	CreatedAt time.Time
}
