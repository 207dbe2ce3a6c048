package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"

	"github.com/freightdesk/api/internal/platform/config"
	"github.com/freightdesk/api/internal/services"
)

// SMTPMailer delivers quotation emails over an authenticated SMTP relay.
type SMTPMailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
	send     func(*mailyak.MailYak) error
}

// SMTPMailerOption customises SMTPMailer behaviour.
type SMTPMailerOption func(*SMTPMailer)

// WithSendFunc overrides the delivery function (primarily for tests).
func WithSendFunc(send func(*mailyak.MailYak) error) SMTPMailerOption {
	return func(m *SMTPMailer) {
		if send != nil {
			m.send = send
		}
	}
}

// NewSMTPMailer constructs an SMTPMailer from the SMTP configuration section.
func NewSMTPMailer(cfg config.SMTPConfig, opts ...SMTPMailerOption) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("mail: smtp port is required")
	}
	from := strings.TrimSpace(cfg.FromAddress)
	if from == "" {
		return nil, errors.New("mail: from address is required")
	}

	m := &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", host, cfg.Port),
		from:     from,
		fromName: strings.TrimSpace(cfg.FromName),
		send: func(msg *mailyak.MailYak) error {
			return msg.Send()
		},
	}
	if username := strings.TrimSpace(cfg.Username); username != "" {
		m.auth = smtp.PlainAuth("", username, cfg.Password, host)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// SendQuotationEmail composes and delivers the quotation summary to the recipient.
func (m *SMTPMailer) SendQuotationEmail(ctx context.Context, email services.QuotationEmail) error {
	recipient := strings.TrimSpace(email.Recipient)
	if recipient == "" {
		return errors.New("mail: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mailyak.New(m.addr, m.auth)
	msg.To(recipient)
	msg.From(m.from)
	if m.fromName != "" {
		msg.FromName(m.fromName)
	}
	msg.Subject(quotationSubject(email.Quotation))
	msg.Plain().Set(quotationBody(email))
	msg.HTML().Set(quotationHTMLBody(email))

	if err := m.send(msg); err != nil {
		return fmt.Errorf("mail: send quotation email: %w", err)
	}
	return nil
}

func quotationSubject(q services.Quotation) string {
	mode := strings.ToUpper(string(q.Mode))
	return fmt.Sprintf("%s Cargo Quotation %s", mode, q.QuoteNumber)
}

func quotationBody(email services.QuotationEmail) string {
	q := email.Quotation
	b := email.Breakdown

	var sb strings.Builder
	if msg := strings.TrimSpace(email.Message); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Quotation %s\n", q.QuoteNumber)
	fmt.Fprintf(&sb, "Route: %s to %s\n", q.Origin, q.Destination)
	fmt.Fprintf(&sb, "Chargeable weight: %.2f kg\n\n", b.ChargeableWeight)

	for _, line := range b.FreightLines {
		fmt.Fprintf(&sb, "%s: %.2f\n", line.Name, line.Amount)
	}
	if b.SurchargeVisible {
		fmt.Fprintf(&sb, "CCF surcharge: %.2f\n", b.SurchargeAmount)
	}
	for _, line := range b.DestinationLines {
		fmt.Fprintf(&sb, "%s: %.2f\n", line.Name, line.Amount)
	}
	for _, line := range b.ClearanceLines {
		fmt.Fprintf(&sb, "%s: %.2f\n", line.Name, line.Amount)
	}

	fmt.Fprintf(&sb, "\nSubtotal: %.2f\n", b.Subtotal)
	fmt.Fprintf(&sb, "Tax: %.2f\n", b.TaxAmount)
	fmt.Fprintf(&sb, "Grand total: %.2f\n", b.GrandTotal)

	if notes := strings.TrimSpace(q.Notes); notes != "" {
		fmt.Fprintf(&sb, "\nNotes: %s\n", notes)
	}
	return sb.String()
}

func quotationHTMLBody(email services.QuotationEmail) string {
	q := email.Quotation
	b := email.Breakdown

	var sb strings.Builder
	if msg := strings.TrimSpace(email.Message); msg != "" {
		fmt.Fprintf(&sb, "<p>%s</p>", html.EscapeString(msg))
	}

	fmt.Fprintf(&sb, "<h2>Quotation %s</h2>", html.EscapeString(q.QuoteNumber))
	fmt.Fprintf(&sb, "<p>Route: %s to %s<br>Chargeable weight: %.2f kg</p>",
		html.EscapeString(q.Origin), html.EscapeString(q.Destination), b.ChargeableWeight)

	sb.WriteString("<table cellpadding=\"4\"><tr><th align=\"left\">Charge</th><th align=\"right\">Amount</th></tr>")
	writeLine := func(name string, amount float64) {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td align=\"right\">%.2f</td></tr>", html.EscapeString(name), amount)
	}
	for _, line := range b.FreightLines {
		writeLine(line.Name, line.Amount)
	}
	if b.SurchargeVisible {
		writeLine("CCF surcharge", b.SurchargeAmount)
	}
	for _, line := range b.DestinationLines {
		writeLine(line.Name, line.Amount)
	}
	for _, line := range b.ClearanceLines {
		writeLine(line.Name, line.Amount)
	}
	sb.WriteString("</table>")

	fmt.Fprintf(&sb, "<p>Subtotal: %.2f<br>Tax: %.2f<br><strong>Grand total: %.2f</strong></p>",
		b.Subtotal, b.TaxAmount, b.GrandTotal)

	if notes := strings.TrimSpace(q.Notes); notes != "" {
		fmt.Fprintf(&sb, "<p>Notes: %s</p>", html.EscapeString(notes))
	}
	return sb.String()
}
