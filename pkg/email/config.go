package email

// Config holds the outbound mail settings of the notification worker.
// Postmark tokens may be empty in development, where DevSender is used.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"NOTIFY_SENDER_EMAIL,required"`
	SupportEmail         string `env:"NOTIFY_SUPPORT_EMAIL,required"`
	DevOutputDir         string `env:"NOTIFY_EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// Production reports whether Postmark credentials are present.
func (c Config) Production() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// NewSender picks Postmark when credentials are set and DevSender otherwise.
func NewSender(cfg Config) (EmailSender, error) {
	if cfg.Production() {
		return NewPostmarkClient(cfg)
	}
	return NewDevSender(cfg.DevOutputDir), nil
}
