package service

import (
	"context"

	"safeharbour/internal/approval/models"
	id "safeharbour/pkg/domain"
)

// afterCommitter is implemented by executors with side effects that live
// outside the store transaction, such as queued jobs.
type afterCommitter interface {
	AfterCommit(ctx context.Context, req *models.Request)
}

// Action adapts a case mutation to Executor. Run takes part in the approval
// transaction. After runs only once that transaction has committed, and only
// for the caller that executed the request.
type Action struct {
	Run   func(ctx context.Context, subject id.CaseID) error
	After func(ctx context.Context, subject id.CaseID)
}

func (a Action) Execute(ctx context.Context, req *models.Request) error {
	return a.Run(ctx, req.SubjectID)
}

func (a Action) AfterCommit(ctx context.Context, req *models.Request) {
	if a.After != nil {
		a.After(ctx, req.SubjectID)
	}
}
