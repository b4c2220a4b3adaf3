package utils

import (
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Sender delivers a composed message. gomail's Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends reset codes and invites. Delivery is best effort: callers
// use the Async variants so a mail failure never blocks the request.
type Mailer struct {
	sender Sender
	from   string
	log    *zap.Logger
}

func NewMailer(cfg SMTPConfig, log *zap.Logger) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass), cfg.From, log)
}

func NewMailerWithSender(sender Sender, from string, log *zap.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, log: log}
}

var resetEmailTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Password Reset Code</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
		.container { background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px; }
		.code { font-weight: bold; color: #007bff; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Password Reset Code</h1>
		<p>Your password reset code is:</p>
		<p class="code">{{.}}</p>
		<p>If you did not request a password reset, please ignore this email.</p>
	</div>
</body>
</html>
`))

var inviteEmailTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<body>
	<h1>Welcome to {{.Lab}}</h1>
	<p>An account has been created for you with the username <strong>{{.Username}}</strong>.</p>
	<p>Use the password reset option on the login page to choose your password.</p>
</body>
</html>
`))

func (m *Mailer) compose(to, subject, text string, tmpl *template.Template, data interface{}) (*gomail.Message, error) {
	var html strings.Builder
	if err := tmpl.Execute(&html, data); err != nil {
		return nil, err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}

func (m *Mailer) SendResetCode(email, code string) error {
	msg, err := m.compose(email, "Password Reset Code", "Your password reset code is: "+code, resetEmailTemplate, code)
	if err != nil {
		return err
	}
	return m.sender.DialAndSend(msg)
}

func (m *Mailer) SendInvite(email, username, lab string) error {
	data := struct{ Username, Lab string }{Username: username, Lab: lab}
	text := "An account has been created for you at " + lab + " with the username " + username + "."
	msg, err := m.compose(email, "Your "+lab+" account", text, inviteEmailTemplate, data)
	if err != nil {
		return err
	}
	return m.sender.DialAndSend(msg)
}

// SendResetCodeAsync sends in the background and logs a failure.
func (m *Mailer) SendResetCodeAsync(email, code string) {
	go m.logFailure("reset code", email, func() error { return m.SendResetCode(email, code) })
}

func (m *Mailer) SendInviteAsync(email, username, lab string) {
	go m.logFailure("invite", email, func() error { return m.SendInvite(email, username, lab) })
}

func (m *Mailer) logFailure(kind, to string, send func() error) {
	if err := send(); err != nil {
		m.log.Warn("email delivery failed", zap.String("kind", kind), zap.String("to", to), zap.Error(err))
	}
}
