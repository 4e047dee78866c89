// Package notify sends the user-facing mails of the service. Delivery is
// best-effort: a mail that cannot be sent is logged and dropped, it never
// fails the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"aurioncal/internal/logging"
)

// Mailer delivers failure notifications over SMTP. With no SMTP address
// configured it degrades to logging only.
type Mailer struct {
	addr     string // host:port, empty disables delivery
	from     string
	username string
	password string
	appURL   string
	log      *slog.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(addr, from, username, password, appURL string, log *slog.Logger) *Mailer {
	return &Mailer{
		addr:     addr,
		from:     from,
		username: username,
		password: password,
		appURL:   appURL,
		log:      log,
		send:     smtp.SendMail,
	}
}

// NotifyFetchFailure tells the user their planning stopped refreshing.
// lastKnownGood is the last successful sync, nil when there never was one.
func (m *Mailer) NotifyFetchFailure(ctx context.Context, email string, lastKnownGood *time.Time) {
	if m.addr == "" {
		m.log.Info("notify_skipped_smtp_unconfigured", "email", logging.MaskEmail(email))
		return
	}

	subject := "Votre calendrier n'est plus synchronisé"
	body := m.fetchFailureBody(lastKnownGood)
	if err := m.sendMail(ctx, email, subject, body); err != nil {
		m.log.Error("notify_send_failed",
			"email", logging.MaskEmail(email),
			"error", err,
		)
		return
	}
	m.log.Info("notify_sent", "email", logging.MaskEmail(email))
}

func (m *Mailer) fetchFailureBody(lastKnownGood *time.Time) string {
	var b strings.Builder
	b.WriteString("Bonjour,\r\n\r\n")
	b.WriteString("La synchronisation de votre calendrier avec Aurion échoue depuis plusieurs tentatives.\r\n")
	if lastKnownGood != nil {
		fmt.Fprintf(&b, "Les événements affichés datent du %s (UTC).\r\n",
			lastKnownGood.UTC().Format("02/01/2006 15:04"))
	} else {
		b.WriteString("Aucune synchronisation n'a encore abouti : votre calendrier est vide.\r\n")
	}
	b.WriteString("\r\nLa cause la plus fréquente est un changement de votre mot de passe Aurion.\r\n")
	if m.appURL != "" {
		fmt.Fprintf(&b, "Vous pouvez le mettre à jour ici : %s\r\n", m.appURL)
	}
	b.WriteString("\r\nCordialement,\r\nAurionCal\r\n")
	return b.String()
}

func (m *Mailer) sendMail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.username != "" {
		host := m.addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.username, m.password, host)
	}
	return m.send(m.addr, auth, m.from, []string{to}, []byte(msg.String()))
}
