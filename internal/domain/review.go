package domain

import "errors"

// ErrNotFound is returned by review stores when no review has the requested id.
var ErrNotFound = errors.New("review not found")

// Review is a single persisted survey submission.
type Review struct {
	ID               int64
	RespondentID     int64
	RespondentHandle string
	Body             string
	Answered         bool
	OperatorReply    string
}

// HandleOrUnknown returns the respondent's display name for operator views.
func (r Review) HandleOrUnknown() string {
	if r.RespondentHandle == "" {
		return "неизвестно"
	}
	return r.RespondentHandle
}
