// Package mailer is the outbound delivery boundary for magic links. SMTP
// transport lives behind the interface; the default implementation only
// logs the link, which is also what local development wants.
package mailer

import (
	"context"
	"log/slog"
)

type Mailer interface {
	SendMagicLink(ctx context.Context, email, link string) error
}

type LogMailer struct{}

func (LogMailer) SendMagicLink(_ context.Context, email, link string) error {
	slog.Info("magic link issued", "email", email, "link", link)
	return nil
}
