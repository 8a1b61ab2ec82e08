package employee

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Employee entities.
type Repository interface {
	Create(ctx context.Context, e *Employee) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*Employee, error)
	Update(ctx context.Context, e *Employee) error // FirstName, LastName, Department, Role, IsActive
	ListActive(ctx context.Context) ([]*Employee, error)
	// ListLeads returns active leads and managers of a department.
	ListLeads(ctx context.Context, department string) ([]*Employee, error)
}
