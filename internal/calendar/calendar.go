// Package calendar notifies an external calendar about upcoming hearings.
//
// Every implementation is best effort, callers report failures and carry on.
package calendar

import (
	"context"

	"casetrack-backend/internal/ecourts"
)

// Event is an all day hearing entry.
type Event struct {
	// CaseNumber is the upstream case number, or the cnr when it is unknown.
	CaseNumber string
	Date       ecourts.Date
	Petitioner string
	Respondent string
	Court      string
}

// Calendar creates, moves and removes hearing events.
type Calendar interface {
	// Create returns the id of the new event, "" when nothing was created.
	Create(ctx context.Context, event Event) (string, error)
	Update(ctx context.Context, eventID string, event Event) error
	Delete(ctx context.Context, eventID string) error
}

// Noop is used when no calendar is configured.
type Noop struct{}

func (Noop) Create(context.Context, Event) (string, error) { return "", nil }
func (Noop) Update(context.Context, string, Event) error   { return nil }
func (Noop) Delete(context.Context, string) error          { return nil }
