// Package template renders notification messages from organization-level
// custom templates, falling back to built-in defaults.
package template

import (
	"context"
	"strings"
	texttemplate "text/template"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// Vars holds the substitution variables available to templates.
type Vars struct {
	OrganizationName string
	OrganizationLogo string
	TicketNumber     string
	DepartmentName   string
	ServiceName      string
	Position         int
	WaitEstimateMin  int
	NowServing       string
	CustomerName     string
}

// Message is a rendered notification. WhatsApp messages use Body only.
// An empty Body signals the caller to skip sending.
type Message struct {
	Title string
	Body  string
	Icon  string
}

// Empty reports whether the message is the deliberate skip sentinel.
func (m Message) Empty() bool {
	return strings.TrimSpace(m.Body) == "" && strings.TrimSpace(m.Title) == ""
}

type Input struct {
	Type           domain.NotificationType
	Channel        domain.Channel
	OrganizationID string
	TicketID       string
	Vars           *Vars
	Overrides      *domain.PayloadOverrides
}

type Renderer struct {
	templates repository.TemplateRepository
	tickets   repository.TicketContextRepository
	logger    *zap.Logger
}

func NewRenderer(
	templates repository.TemplateRepository,
	tickets repository.TicketContextRepository,
	logger *zap.Logger,
) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Renderer{
		templates: templates,
		tickets:   tickets,
		logger:    logger,
	}
}

// Render resolves the template (organization override, then built-in
// default), loads ticket variables when a ticket ID is supplied, and
// substitutes. It never fails a notification: lookup errors degrade to
// placeholder values, and unknown template combinations render empty.
func (r *Renderer) Render(ctx context.Context, in Input) Message {
	vars := r.resolveVars(ctx, in)
	def := r.resolveTemplate(ctx, in)

	msg := Message{
		Title: substitute(def.Title, vars),
		Body:  substitute(def.Body, vars),
		Icon:  def.Icon,
	}

	if in.Overrides != nil {
		if in.Overrides.Title != "" {
			msg.Title = in.Overrides.Title
		}
		if in.Overrides.Body != "" {
			msg.Body = in.Overrides.Body
		}
		if in.Overrides.Icon != "" {
			msg.Icon = in.Overrides.Icon
		}
	}

	return msg
}

func (r *Renderer) resolveVars(ctx context.Context, in Input) Vars {
	if in.Vars != nil {
		return *in.Vars
	}

	vars := Vars{
		TicketNumber:     repository.PlaceholderTicketNumber,
		DepartmentName:   repository.PlaceholderDepartment,
		OrganizationName: repository.PlaceholderOrganization,
	}

	if in.TicketID == "" || r.tickets == nil {
		return vars
	}

	tc, err := r.tickets.FindContext(ctx, in.TicketID)
	if err != nil || tc == nil {
		r.logger.Warn("ticket context lookup failed, rendering with placeholders",
			zap.String("ticketId", in.TicketID),
			zap.Error(err),
		)
		return vars
	}

	return Vars{
		OrganizationName: tc.OrganizationName,
		OrganizationLogo: tc.OrganizationLogo,
		TicketNumber:     tc.TicketNumber,
		DepartmentName:   tc.DepartmentName,
		ServiceName:      tc.ServiceName,
		Position:         tc.Position,
		WaitEstimateMin:  tc.WaitEstimateMin,
		NowServing:       tc.NowServing,
		CustomerName:     tc.CustomerName,
	}
}

func (r *Renderer) resolveTemplate(ctx context.Context, in Input) templateDef {
	if r.templates != nil && in.OrganizationID != "" {
		custom, err := r.templates.Find(ctx, in.OrganizationID, in.Type, in.Channel)
		if err != nil {
			r.logger.Warn("organization template lookup failed, using default",
				zap.String("organizationId", in.OrganizationID),
				zap.String("type", in.Type.String()),
				zap.Error(err),
			)
		}
		if custom != nil {
			return templateDef{Title: custom.Title, Body: custom.Body, Icon: custom.Icon}
		}
	}

	return defaults[templateKey{Type: in.Type, Channel: in.Channel}]
}

func substitute(text string, vars Vars) string {
	if text == "" {
		return ""
	}

	tmpl, err := texttemplate.New("msg").Option("missingkey=zero").Parse(text)
	if err != nil {
		return text
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return text
	}
	return b.String()
}
