package notification

import (
	"fmt"
	"html"
	"time"
)

const otpSubject = "OTP Verification Code"

// OTPMessage renders the verification email carrying code.
func OTPMessage(email, code string, validity time.Duration) Message {
	minutes := int(validity / time.Minute)
	body := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">OTP Verification</h2>
  <p>Your OTP verification code is:</p>
  <h1 style="background-color: #f0f0f0; padding: 20px; text-align: center; color: #007bff; letter-spacing: 5px;">%s</h1>
  <p>This code will expire in %d minutes.</p>
  <p>If you didn't request this code, please ignore this email.</p>
</div>`, html.EscapeString(code), minutes)

	return Message{
		Kind:        KindOTPVerification,
		Destination: email,
		Subject:     otpSubject,
		Body:        body,
	}
}
