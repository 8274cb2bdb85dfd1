package email

import "fmt"

// Provider selects how emails leave the service.
type Provider string

const (
	// ProviderLog only logs the email; nothing is sent.
	ProviderLog Provider = "log"
	// ProviderFile writes each email as HTML and JSON files to OutputDir.
	ProviderFile Provider = "file"
	// ProviderPostmark sends through the Postmark API.
	ProviderPostmark Provider = "postmark"
)

type Config struct {
	Provider             Provider `env:"EMAIL_PROVIDER" envDefault:"log"`
	PostmarkServerToken  string   `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string   `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string   `env:"SENDER_EMAIL"`
	SupportEmail         string   `env:"SUPPORT_EMAIL"`
	OutputDir            string   `env:"EMAIL_OUTPUT_DIR" envDefault:"./tmp/emails"`
}

func (c Config) checkPostmark() error {
	var problem string
	switch {
	case c.PostmarkServerToken == "":
		problem = "PostmarkServerToken is required"
	case c.PostmarkAccountToken == "":
		problem = "PostmarkAccountToken is required"
	case c.SenderEmail == "":
		problem = "SenderEmail is required"
	case !ValidAddress(c.SenderEmail):
		problem = "SenderEmail must be a valid email address"
	case c.SupportEmail != "" && !ValidAddress(c.SupportEmail):
		problem = "SupportEmail must be a valid email address"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, problem)
}
