package config

// Mail configures confirmation delivery. An empty SMTP_HOST selects the
// logging mailer.
type Mail struct {
	SmtpHost     string `env:"SMTP_HOST"`
	SmtpPort     string `env:"SMTP_PORT" envDefault:"587"`
	SmtpAccount  string `env:"SMTP_ACCOUNT"`
	SmtpPassword string `env:"SMTP_PASSWORD"`
	SmtpFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	MailRetries  uint64 `env:"MAIL_RETRIES" envDefault:"3"`
}

var _ MailConfig = Mail{}

func (m Mail) GetSmtpHost() string {
	return m.SmtpHost
}

func (m Mail) GetSmtpPort() string {
	return m.SmtpPort
}

func (m Mail) GetSmtpAccount() string {
	return m.SmtpAccount
}

func (m Mail) GetSmtpPassword() string {
	return m.SmtpPassword
}

func (m Mail) GetSmtpFrom() string {
	return m.SmtpFrom
}

func (m Mail) GetMailRetries() uint64 {
	return m.MailRetries
}
