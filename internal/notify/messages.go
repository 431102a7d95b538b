package notify

import (
	"fmt"
	"time"

	"github.com/dtroode/authkeeper/internal/model"
)

// ResetRequestMessage builds the mail carrying a password reset link.
func ResetRequestMessage(to, link string, ttl time.Duration) model.Message {
	return model.Message{
		To:      to,
		Subject: "Password Reset Request",
		Body: fmt.Sprintf("You requested a password reset. Click the link below to reset your password:\n\n%s\n\nThis link will expire in %d minutes.",
			link, int(ttl.Minutes())),
	}
}

// ResetConfirmationMessage builds the mail sent after a password was changed.
func ResetConfirmationMessage(to, name string) model.Message {
	return model.Message{
		To:      to,
		Subject: "Password Reset Successful",
		Body: fmt.Sprintf("Hello %s,\n\nYour password has been successfully reset. If you did not initiate this change, please contact support immediately.\n\nBest Regards,\nYour Support Team",
			name),
	}
}
