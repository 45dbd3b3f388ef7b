package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
)

// ReceiptLine is one purchased item on the emailed receipt.
type ReceiptLine struct {
	Name     string
	Quantity int
	Total    decimal.Decimal
}

// Receipt holds everything the confirmation email needs.
type Receipt struct {
	OrderID      int64
	CustomerName string
	TableNumber  string
	Lines        []ReceiptLine
	Total        decimal.Decimal
}

// Mailer sends order receipts over SMTP.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewMailer returns nil when no SMTP host is configured, which callers
// treat as "email disabled".
func NewMailer(host string, port int, user, pass, from string) *Mailer {
	if host == "" {
		return nil
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// SendReceipt delivers the order confirmation to the customer.
func (m *Mailer) SendReceipt(ctx context.Context, to string, r Receipt) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("Xác nhận đơn hàng #%d", r.OrderID))
	msg.SetBodyString(mail.TypeTextPlain, receiptBody(r))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.user),
		mail.WithPassword(m.pass),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func receiptBody(r Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cảm ơn %s đã đặt hàng!\n\n", r.CustomerName)
	fmt.Fprintf(&b, "Đơn hàng #%d", r.OrderID)
	if r.TableNumber != "" {
		fmt.Fprintf(&b, " - Bàn %s", r.TableNumber)
	}
	b.WriteString("\n\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "  %dx %s - %s₫\n", line.Quantity, line.Name, line.Total.StringFixed(0))
	}
	fmt.Fprintf(&b, "\nTổng cộng: %s₫\n", r.Total.StringFixed(0))
	return b.String()
}
