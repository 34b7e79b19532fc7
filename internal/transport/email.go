package transport

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

// Postmark error codes that mean the recipient address will never work.
// https://postmarkapp.com/developer/api/overview#error-codes
const (
	postmarkErrInvalidEmail      = 300
	postmarkErrInactiveRecipient = 406
)

// PostmarkEmail sends transactional email through Postmark.
type PostmarkEmail struct {
	client *postmark.Client
	from   string
}

func NewPostmarkEmail(serverToken, accountToken, from string) *PostmarkEmail {
	return &PostmarkEmail{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}
}

func (c *PostmarkEmail) Send(ctx context.Context, email Email) error {
	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.from,
		To:       email.To,
		Subject:  email.Subject,
		TextBody: email.Body,
	})
	if err != nil {
		return fmt.Errorf("email provider request failed: %w", err)
	}
	if resp.ErrorCode > 0 {
		if resp.ErrorCode == postmarkErrInvalidEmail || resp.ErrorCode == postmarkErrInactiveRecipient {
			return permanentf("email provider rejected recipient (code %d): %s", resp.ErrorCode, resp.Message)
		}
		return fmt.Errorf("email provider error (code %d): %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
