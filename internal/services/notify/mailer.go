// Package notify emails administrators about detected and resolved
// conflicts. Delivery is best-effort: a down SMTP relay never blocks
// replication.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"syncfabric/internal/domain"
	"syncfabric/internal/platform/config"
	"syncfabric/internal/platform/logger"
)

// Config holds the SMTP relay and addressing settings
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	AdminTo       []string
	PublicBaseURL string
	Secret        string
}

// ConfigFromEnv reads mailer settings. Defaults target the compose-file
// MailHog relay, which takes no auth and no TLS.
func ConfigFromEnv(root config.Conf) Config {
	to := strings.Split(root.MayString("EMAIL_ADMIN_TO", "admin@example.com"), ",")
	recipients := make([]string, 0, len(to))
	for _, a := range to {
		if a = strings.TrimSpace(a); a != "" {
			recipients = append(recipients, a)
		}
	}
	smtp := root.Prefix("SMTP_")
	return Config{
		Host:          smtp.MayString("HOST", "mailhog"),
		Port:          smtp.MayInt("PORT", 1025),
		Username:      smtp.MayString("USERNAME", ""),
		Password:      smtp.MayString("PASSWORD", ""),
		From:          root.MayString("EMAIL_FROM", "sync-platform@example.com"),
		AdminTo:       recipients,
		PublicBaseURL: root.MayString("PUBLIC_BASE_URL", "http://localhost:18000"),
		Secret:        root.MayString("APP_SECRET_KEY", "change-me"),
	}
}

// Mailer sends conflict notifications over SMTP. Implements the notifier
// seams of the replicator and conflicts services.
type Mailer struct {
	Cfg    Config
	Tokens *Tokens
	Log    *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Mailer {
	if log == nil {
		log = logger.Named("notify")
	}
	return &Mailer{Cfg: cfg, Tokens: NewTokens(cfg.Secret), Log: log}
}

// ConflictDetected emails admins a signed link to the new conflict. Sends in
// the background so the apply path never waits on SMTP.
func (m *Mailer) ConflictDetected(_ context.Context, conflictID int64, c domain.Conflict) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		link := fmt.Sprintf("%s/conflicts/%d/public", m.Cfg.PublicBaseURL, conflictID)
		if token, err := m.Tokens.MakeConflictToken(conflictID); err == nil {
			link += "?t=" + token
		}

		subject := fmt.Sprintf("Replication conflict #%d detected", conflictID)
		text := fmt.Sprintf(
			"A new replication conflict (ID=%d) needs resolution.\n\n"+
				"- table: %s\n- pk: %s\n- source_db: %s\n- target_db: %s\n\n"+
				"Open the resolution page (link valid for 24 hours):\n%s\n",
			conflictID, c.TableName, c.PKValue, c.SourceDB, c.TargetDB, link)
		html := fmt.Sprintf(
			"<p>A new replication conflict (ID=%d) needs resolution.</p>"+
				"<ul><li>table: %s</li><li>pk: %s</li><li>source_db: %s</li><li>target_db: %s</li></ul>"+
				`<p><a href="%s">Open the resolution page</a> (link valid for 24 hours).</p>`,
			conflictID, c.TableName, c.PKValue, c.SourceDB, c.TargetDB, link)

		if err := m.send(ctx, subject, text, html); err != nil {
			m.Log.Warn().Err(err).Int64("conflict_id", conflictID).Msg("conflict email not delivered")
		}
	}()
}

// ConflictResolved emails admins the outcome of a resolution
func (m *Mailer) ConflictResolved(_ context.Context, conflictID int64, winner string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		subject := fmt.Sprintf("Replication conflict #%d resolved", conflictID)
		text := fmt.Sprintf(
			"Conflict #%d has been resolved; %s data won.\n",
			conflictID, strings.ToUpper(winner))
		html := fmt.Sprintf(
			"<p>Conflict #%d has been resolved; %s data won.</p>",
			conflictID, strings.ToUpper(winner))

		if err := m.send(ctx, subject, text, html); err != nil {
			m.Log.Warn().Err(err).Int64("conflict_id", conflictID).Msg("resolved email not delivered")
		}
	}()
}

func (m *Mailer) send(ctx context.Context, subject, text, html string) error {
	if len(m.Cfg.AdminTo) == 0 {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.Cfg.From); err != nil {
		return err
	}
	if err := msg.To(m.Cfg.AdminTo...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(m.Cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.Cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.Cfg.Username),
			mail.WithPassword(m.Cfg.Password),
		)
	}
	client, err := mail.NewClient(m.Cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
