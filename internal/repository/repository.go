// Package repository declares the storage interfaces used by the service layer.
package repository

import (
	"context"

	"github.com/sakif/script-playground/internal/model"
)

// ListOptions pages through results, newest first.
type ListOptions struct {
	Limit  int
	Offset int
	// Status filters by run status when non-empty.
	Status model.RunStatus
}

// RunRepository stores the execution log.
type RunRepository interface {
	Create(ctx context.Context, run *model.Run) error
	GetByID(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, opts ListOptions) ([]model.Run, error)
}
