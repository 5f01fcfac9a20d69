package services

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	xhtml "golang.org/x/net/html"

	"mace-backend/config"
	"mace-backend/models"
	"mace-backend/utils"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService renders templates and delivers them over the SendGrid SMTP
// relay.
type EmailService struct {
	templates TemplateStore
	apiKey    string
	from      string
	host      string
	port      string
	send      SendFunc
	log       *logrus.Logger
	now       func() time.Time
}

func NewEmailService(cfg *config.Config, templates TemplateStore, logger *logrus.Logger) *EmailService {
	return &EmailService{
		templates: templates,
		apiKey:    cfg.SendGridAPIKey,
		from:      cfg.MailFrom,
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		send:      smtp.SendMail,
		log:       logger,
		now:       time.Now,
	}
}

// WithSender replaces the transport, for tests.
func (es *EmailService) WithSender(send SendFunc) *EmailService {
	es.send = send
	return es
}

func (es *EmailService) Ready() error {
	if strings.TrimSpace(es.apiKey) == "" {
		return fmt.Errorf("%w: SENDGRID_API_KEY is not set", utils.ErrConfiguration)
	}
	return nil
}

// Send renders templateType with data and delivers it to data.To plus the
// template's CC and BCC lists.
func (es *EmailService) Send(ctx context.Context, templateType string, data models.EmailData) error {
	if err := es.Ready(); err != nil {
		return err
	}
	to := strings.TrimSpace(data.To)
	if !utils.IsValidEmail(to) || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%w: invalid recipient %q", utils.ErrValidation, data.To)
	}

	tmpl, err := es.resolveTemplate(ctx, templateType)
	if err != nil {
		return err
	}

	subject := singleLine(processTemplate(tmpl.Subject, data, false))
	body := processTemplate(tmpl.Body, data, true)

	msg, err := es.buildMessage(to, tmpl.CC, subject, body)
	if err != nil {
		return fmt.Errorf("build %s email: %w", templateType, err)
	}

	recipients := append([]string{to}, tmpl.CC...)
	recipients = append(recipients, tmpl.BCC...)

	auth := smtp.PlainAuth("", "apikey", es.apiKey, es.host)
	if err := es.send(es.host+":"+es.port, auth, es.from, recipients, msg); err != nil {
		return fmt.Errorf("%w: sending %s email to %s: %v", utils.ErrUpstream, templateType, to, err)
	}
	es.log.WithFields(logrus.Fields{"template": templateType, "to": to, "rfqId": data.RFQID}).Info("email sent")
	return nil
}

// resolveTemplate prefers an active stored template and falls back to the
// built-in one when the store has none or cannot be read.
func (es *EmailService) resolveTemplate(ctx context.Context, templateType string) (models.EmailTemplate, error) {
	if es.templates != nil {
		stored, err := es.templates.FindActiveTemplate(ctx, templateType)
		if err != nil {
			config.LogError(es.log, "email", "resolveTemplate", "falling back to built-in template", templateType, err)
		} else if stored != nil {
			return *stored, nil
		}
	}
	tmpl, ok := defaultTemplates[templateType]
	if !ok {
		return models.EmailTemplate{}, fmt.Errorf("unknown email template type %q", templateType)
	}
	return tmpl, nil
}

// processTemplate substitutes {{var}} placeholders. Plain values are HTML
// escaped when escape is set; the pre-rendered blocks are inserted as is.
func processTemplate(templateStr string, data models.EmailData, escape bool) string {
	esc := func(s string) string {
		if escape {
			return html.EscapeString(s)
		}
		return s
	}
	variables := map[string]string{
		"rfq_id":          esc(data.RFQID),
		"project_name":    esc(data.ProjectName),
		"project_address": esc(data.ProjectAddress),
		"needed_by":       esc(data.NeededBy),
		"project_notes":   esc(data.ProjectNotes),
		"requester_name":  esc(data.RequesterName),
		"requester_email": esc(data.RequesterEmail),
		"requester_phone": esc(data.RequesterPhone),
		"vendor_name":     esc(data.VendorName),
		"vendor_email":    esc(data.VendorEmail),
		"item_name":       esc(data.ItemName),
		"reply_id":        esc(data.ReplyID),
		"link":            esc(data.Link),
		"total":           esc(data.Total),
		"items_table":     data.ItemsHTML,
		"file_links":      data.FilesHTML,
	}

	result := templateStr
	for key, value := range variables {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// buildMessage writes a multipart/alternative message with a text part
// derived from the HTML body.
func (es *EmailService) buildMessage(to string, cc []string, subject, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
	}
	if len(cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(cc, ", "))
	}
	headers = append(headers,
		"Subject: "+mime.QEncoding.Encode("utf-8", subject),
		"Date: "+es.now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary="+mw.Boundary(),
	)

	var out bytes.Buffer
	out.WriteString(strings.Join(headers, "\r\n") + "\r\n\r\n")

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", convertHTMLToText(htmlBody)},
		{"text/html; charset=utf-8", htmlBody},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

// convertHTMLToText converts HTML content to plain text for the text part.
func convertHTMLToText(htmlContent string) string {
	doc, err := xhtml.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*xhtml.Node)
	extractText = func(n *xhtml.Node) {
		switch n.Type {
		case xhtml.TextNode:
			text.WriteString(n.Data)
		case xhtml.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
		if n.Type == xhtml.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && !strings.Contains(textOf(n), attr.Val) {
					text.WriteString(" (" + attr.Val + ")")
				}
			}
		}
	}
	extractText(doc)

	lines := strings.Split(text.String(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func textOf(n *xhtml.Node) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
