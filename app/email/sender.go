package email

import "context"

// Sender is the outbound mail capability. Implementations must be safe for
// concurrent use; the service holds exactly one for its whole lifetime.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
