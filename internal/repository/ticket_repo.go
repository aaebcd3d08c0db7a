package repository

import (
	"context"
	"errors"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"gorm.io/gorm"
)

// Placeholder values used when a link in the ticket→department→branch→
// organization chain is missing. Rendering degrades instead of failing.
const (
	PlaceholderTicketNumber = "N/A"
	PlaceholderDepartment   = "Department"
	PlaceholderOrganization = "Your Organization"
)

// TicketContext is the flat, fully-populated view of a ticket used for
// template rendering. The joined chain is normalized here, at the data-access
// boundary, so the rest of the pipeline never branches on record shape.
type TicketContext struct {
	TicketID         string
	TicketNumber     string
	CustomerName     string
	CustomerPhone    string
	Status           string
	Position         int
	WaitEstimateMin  int
	NowServing       string
	DepartmentName   string
	ServiceName      string
	BranchName       string
	OrganizationID   string
	OrganizationName string
	OrganizationLogo string
}

// minutesPerWaitingTicket is the flat per-position wait estimate.
const minutesPerWaitingTicket = 5

type TicketContextRepository interface {
	// FindContext returns ErrNotFound when the ticket itself is missing;
	// missing chain links degrade to placeholder values instead.
	FindContext(ctx context.Context, ticketID string) (*TicketContext, error)
	// FindMostRecentWaiting returns the newest waiting ticket for a phone,
	// or (nil, nil) when there is none.
	FindMostRecentWaiting(ctx context.Context, phone string) (*TicketContext, error)
}

type GormTicketContextRepo struct {
	db *gorm.DB
}

func NewGormTicketContextRepo(db *gorm.DB) *GormTicketContextRepo {
	return &GormTicketContextRepo{db: db}
}

func (r *GormTicketContextRepo) FindContext(ctx context.Context, ticketID string) (*TicketContext, error) {
	var ticket ticketModel
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return r.buildContext(ctx, &ticket), nil
}

func (r *GormTicketContextRepo) FindMostRecentWaiting(ctx context.Context, phone string) (*TicketContext, error) {
	var ticket ticketModel
	err := r.db.WithContext(ctx).
		Where("phone = ? AND status = ?", phone, "waiting").
		Order("created_at DESC").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return r.buildContext(ctx, &ticket), nil
}

func (r *GormTicketContextRepo) buildContext(ctx context.Context, ticket *ticketModel) *TicketContext {
	tc := &TicketContext{
		TicketID:         ticket.ID,
		TicketNumber:     ticket.TicketNumber,
		CustomerName:     ticket.CustomerName,
		CustomerPhone:    ticket.Phone,
		Status:           ticket.Status,
		Position:         ticket.Position,
		DepartmentName:   PlaceholderDepartment,
		OrganizationName: PlaceholderOrganization,
	}
	if tc.TicketNumber == "" {
		tc.TicketNumber = PlaceholderTicketNumber
	}

	var department departmentModel
	if err := r.db.WithContext(ctx).First(&department, "id = ?", ticket.DepartmentID).Error; err != nil {
		return tc
	}
	if department.Name != "" {
		tc.DepartmentName = department.Name
	}

	if ticket.ServiceID != "" {
		var service serviceModel
		if err := r.db.WithContext(ctx).First(&service, "id = ?", ticket.ServiceID).Error; err == nil {
			tc.ServiceName = service.Name
		}
	}

	tc.Position = r.waitingPosition(ctx, ticket)
	tc.WaitEstimateMin = tc.Position * minutesPerWaitingTicket
	tc.NowServing = r.nowServing(ctx, department.ID)

	var branch branchModel
	if err := r.db.WithContext(ctx).First(&branch, "id = ?", department.BranchID).Error; err != nil {
		return tc
	}
	tc.BranchName = branch.Name

	var organization organizationModel
	if err := r.db.WithContext(ctx).First(&organization, "id = ?", branch.OrganizationID).Error; err != nil {
		return tc
	}
	tc.OrganizationID = organization.ID
	if organization.Name != "" {
		tc.OrganizationName = organization.Name
	}
	tc.OrganizationLogo = organization.LogoURL

	return tc
}

func (r *GormTicketContextRepo) waitingPosition(ctx context.Context, ticket *ticketModel) int {
	if ticket.Status != "waiting" {
		return 0
	}

	var ahead int64
	err := r.db.WithContext(ctx).
		Model(&ticketModel{}).
		Where("department_id = ? AND status = ? AND created_at < ?", ticket.DepartmentID, "waiting", ticket.CreatedAt).
		Count(&ahead).Error
	if err != nil {
		return ticket.Position
	}

	return int(ahead) + 1
}

func (r *GormTicketContextRepo) nowServing(ctx context.Context, departmentID string) string {
	var serving ticketModel
	err := r.db.WithContext(ctx).
		Where("department_id = ? AND status = ?", departmentID, "serving").
		Order("created_at DESC").
		First(&serving).Error
	if err != nil {
		return ""
	}
	return serving.TicketNumber
}
