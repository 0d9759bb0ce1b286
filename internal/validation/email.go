package validation

import (
	"errors"
	"fmt"
	"net/mail"
)

// ValidateEmail checks a bare address such as a digest recipient.
// Display names ("Ana <ana@example.com>") are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}

	// RFC 5321: max 254 characters including the @
	if len(email) > 254 {
		return errors.New("email address is too long (max 254 characters)")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address %q", email)
	}

	return nil
}

// ValidateEmails returns the first invalid address in the list.
func ValidateEmails(emails []string) error {
	for _, email := range emails {
		err := ValidateEmail(email)
		if err != nil {
			return err
		}
	}
	return nil
}
