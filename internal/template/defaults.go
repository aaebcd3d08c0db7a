package template

import "github.com/kuyruklab/notify-engine/internal/domain"

type templateKey struct {
	Type    domain.NotificationType
	Channel domain.Channel
}

type templateDef struct {
	Title string
	Body  string
	Icon  string
}

const defaultIcon = "/icons/notification-192.png"

// Built-in templates used when an organization has no override. The
// ticket_created/whatsapp combination is deliberately absent: that message
// retired in favor of the session welcome message, and rendering it yields
// an empty body so callers skip the send.
var defaults = map[templateKey]templateDef{
	{domain.TypeTicketCreated, domain.ChannelPush}: {
		Title: "Ticket {{.TicketNumber}} created",
		Body:  "You are in the queue for {{.DepartmentName}} at {{.OrganizationName}}. Position: {{.Position}}.",
		Icon:  defaultIcon,
	},
	{domain.TypeAlmostYourTurn, domain.ChannelPush}: {
		Title: "Almost your turn!",
		Body:  "Ticket {{.TicketNumber}} is up soon at {{.DepartmentName}}. About {{.WaitEstimateMin}} min left.",
		Icon:  defaultIcon,
	},
	{domain.TypeAlmostYourTurn, domain.ChannelWhatsApp}: {
		Body: "Almost your turn! Ticket {{.TicketNumber}} is up soon at {{.DepartmentName}}, {{.OrganizationName}}. Estimated wait: {{.WaitEstimateMin}} minutes.",
	},
	{domain.TypeYourTurn, domain.ChannelPush}: {
		Title: "It's your turn!",
		Body:  "Ticket {{.TicketNumber}}, please proceed to {{.DepartmentName}}.",
		Icon:  defaultIcon,
	},
	{domain.TypeYourTurn, domain.ChannelWhatsApp}: {
		Body: "It's your turn! Ticket {{.TicketNumber}}, please proceed to {{.DepartmentName}} at {{.OrganizationName}}.",
	},
	{domain.TypeTicketCancelled, domain.ChannelPush}: {
		Title: "Ticket {{.TicketNumber}} cancelled",
		Body:  "Your ticket at {{.OrganizationName}} has been cancelled.",
		Icon:  defaultIcon,
	},
	{domain.TypeTicketCancelled, domain.ChannelWhatsApp}: {
		Body: "Your ticket {{.TicketNumber}} at {{.OrganizationName}} has been cancelled.",
	},
	{domain.TypeQueueUpdate, domain.ChannelPush}: {
		Title: "Queue update",
		Body:  "Ticket {{.TicketNumber}}: now serving {{.NowServing}} at {{.DepartmentName}}. Your position: {{.Position}}.",
		Icon:  defaultIcon,
	},
	{domain.TypeQueueUpdate, domain.ChannelWhatsApp}: {
		Body: "Queue update for ticket {{.TicketNumber}}: now serving {{.NowServing}} at {{.DepartmentName}}, {{.OrganizationName}}. Your position: {{.Position}}.",
	},
}
