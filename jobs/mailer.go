package jobs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Mailer delivers plain-text mail over SMTP. Development setups point it at
// Mailpit; a nil Mailer drops mail silently so tests need no SMTP server.
type Mailer struct {
	host string
	port int
	from string

	// send is swappable in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewMailer constructs a Mailer for the given SMTP endpoint.
func NewMailer(host string, port int, from string) *Mailer {
	return &Mailer{
		host: host,
		port: port,
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers one message. The body is sent as text/plain.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil {
		return nil
	}
	if to == "" {
		return errors.New("mailer: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	return m.send(addr, m.from, []string{to}, []byte(msg.String()))
}
