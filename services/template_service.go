package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"mace-backend/models"
	"mace-backend/utils"
)

// TemplateRepository is the admin side of the template store.
type TemplateRepository interface {
	TemplateStore
	ListTemplates(ctx context.Context, templateType string) ([]models.EmailTemplate, error)
	GetTemplate(ctx context.Context, id uint) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, t *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, id uint) error
}

type TemplateService struct {
	repo TemplateRepository
	log  *logrus.Logger
}

func NewTemplateService(repo TemplateRepository, logger *logrus.Logger) *TemplateService {
	return &TemplateService{repo: repo, log: logger}
}

func (s *TemplateService) List(ctx context.Context, templateType string) ([]models.EmailTemplate, error) {
	return s.repo.ListTemplates(ctx, templateType)
}

func (s *TemplateService) Get(ctx context.Context, id uint) (*models.EmailTemplate, error) {
	return s.repo.GetTemplate(ctx, id)
}

func (s *TemplateService) Create(ctx context.Context, req models.EmailTemplateRequest) (*models.EmailTemplate, error) {
	t := &models.EmailTemplate{IsActive: true}
	if err := applyTemplateRequest(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": t.ID, "type": t.TemplateType}).Info("email template created")
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, id uint, req models.EmailTemplateRequest) (*models.EmailTemplate, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyTemplateRequest(t, req); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": t.ID, "type": t.TemplateType}).Info("email template updated")
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	return s.repo.DeleteTemplate(ctx, id)
}

func applyTemplateRequest(t *models.EmailTemplate, req models.EmailTemplateRequest) error {
	if !slices.Contains(models.TemplateTypes, req.TemplateType) {
		return fmt.Errorf("%w: invalid template type %q", utils.ErrValidation, req.TemplateType)
	}
	if strings.ContainsAny(req.Subject, "\r\n") {
		return fmt.Errorf("%w: subject must be a single line", utils.ErrValidation)
	}
	for _, addr := range append(append([]string{}, req.CC...), req.BCC...) {
		if !utils.IsValidEmail(addr) {
			return fmt.Errorf("%w: invalid cc/bcc address %q", utils.ErrValidation, addr)
		}
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Subject = strings.TrimSpace(req.Subject)
	t.Body = sanitizeHTML(req.Body)
	t.TemplateType = req.TemplateType
	t.IsDefault = req.IsDefault
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	t.CC = pq.StringArray(req.CC)
	t.BCC = pq.StringArray(req.BCC)
	return nil
}

var (
	allowedTags = map[string]bool{
		"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
		"u": true, "h1": true, "h2": true, "h3": true, "h4": true,
		"ul": true, "ol": true, "li": true, "div": true, "span": true, "a": true,
		"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
		"blockquote": true, "hr": true, "img": true,
	}
	allowedAttributes = map[string]map[string]bool{
		"a":     {"href": true, "target": true, "title": true},
		"img":   {"src": true, "alt": true, "width": true, "height": true},
		"table": {"border": true, "cellpadding": true, "cellspacing": true, "width": true, "style": true},
		"td":    {"colspan": true, "rowspan": true, "style": true},
		"th":    {"colspan": true, "rowspan": true, "style": true},
		"p":     {"style": true},
		"div":   {"style": true},
	}
)

// sanitizeHTML keeps a small set of formatting tags and attributes. Other
// elements are unwrapped to their content; script and style are dropped.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return html.EscapeString(input)
	}

	out := &html.Node{Type: html.DocumentNode}
	var walk func(src, dst *html.Node)
	walk = func(src, dst *html.Node) {
		for child := src.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case html.TextNode:
				dst.AppendChild(&html.Node{Type: html.TextNode, Data: child.Data})
			case html.ElementNode:
				if child.Data == "script" || child.Data == "style" {
					continue
				}
				if !allowedTags[child.Data] {
					walk(child, dst)
					continue
				}
				el := &html.Node{Type: html.ElementNode, Data: child.Data}
				for _, attr := range child.Attr {
					if !allowedAttributes[child.Data][attr.Key] {
						continue
					}
					if (attr.Key == "href" || attr.Key == "src") &&
						strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
						continue
					}
					el.Attr = append(el.Attr, attr)
				}
				dst.AppendChild(el)
				walk(child, el)
			}
		}
	}
	walk(doc, out)

	var buf strings.Builder
	if err := html.Render(&buf, out); err != nil {
		return html.EscapeString(input)
	}
	return strings.TrimSpace(buf.String())
}
