// Email subject and body templates.

package email

import "fmt"

// VerificationEmail returns the subject and body for the OTP verification
// email sent during account creation.
func VerificationEmail(otp string, validMinutes int) (subject, body string) {
	subject = "Verify your email"
	body = fmt.Sprintf(
		"Your verification code is: %s\n\nIt expires in %d minutes. If you did not request this, ignore this email.\n",
		otp, validMinutes)
	return subject, body
}
