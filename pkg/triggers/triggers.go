// Package triggers manages the live registrations that fire workflow runs:
// webhook paths and cron schedules.
package triggers

import (
	"context"

	"github.com/alik-grt/flowd/pkg/models"
)

// RunStarter starts a workflow run on behalf of a fired trigger.
type RunStarter interface {
	StartRun(ctx context.Context, workflowID string, input map[string]any) (*models.Execution, error)
}

// DetachedRunStarter starts a run that finishes in the background and
// returns the id of the new execution. Trigger sources that must not block
// on the run use it.
type DetachedRunStarter interface {
	StartRunDetached(ctx context.Context, workflowID string, input map[string]any) (string, error)
}
