package notification

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/shared/config"
	"github.com/postline-io/postline/internal/shared/goroutine"
	"github.com/postline-io/postline/internal/shared/logger"
)

// EmailNotifier mails billing ops when a payment settles. Sending happens on
// a background goroutine; failures are logged, never surfaced to the billing
// flow.
type EmailNotifier struct {
	cfg    config.EmailConfig
	dialer *gomail.Dialer
	log    logger.Interface
}

func NewEmailNotifier(cfg config.EmailConfig, log logger.Interface) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		log:    log,
	}
}

func (n *EmailNotifier) NotifyPaymentSucceeded(p *payment.Payment) {
	if n.cfg.OpsAddress == "" {
		return
	}

	orderNo := p.OrderNo()
	amount := p.Amount()
	userID := p.UserID()
	provider := p.Provider().String()

	goroutine.SafeGo(n.log, "payment-success-email", func() {
		subject := fmt.Sprintf("Payment received: %s", orderNo)
		body := fmt.Sprintf(`
			<html>
			<body>
				<h2>Payment received</h2>
				<p>Order: %s</p>
				<p>User: %d</p>
				<p>Provider: %s</p>
				<p>Amount: %s</p>
			</body>
			</html>
		`, orderNo, userID, provider, amount.String())

		m := gomail.NewMessage()
		m.SetHeader("From", m.FormatAddress(n.cfg.FromAddress, n.cfg.FromName))
		m.SetHeader("To", n.cfg.OpsAddress)
		m.SetHeader("Subject", subject)
		m.SetBody("text/html", body)

		if err := n.dialer.DialAndSend(m); err != nil {
			n.log.Warnw("payment notification email failed", "error", err, "order_no", orderNo)
		}
	})
}
