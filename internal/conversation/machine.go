// Package conversation drives the per-user survey and operator reply stages.
package conversation

import (
	"strings"

	"feedback-bot/internal/domain"
)

// Step reports what an input did to a session.
type Step int

const (
	// StepIgnored means the input is not valid in the current stage; the
	// session is returned unchanged.
	StepIgnored Step = iota
	// StepAdvanced means the session moved to its next question.
	StepAdvanced
	// StepCompleted means the survey is finished; the caller persists the
	// returned scratch answers and resets the session.
	StepCompleted
	// StepOperatorReply means an operator submitted the reply text for the
	// review bound to their session.
	StepOperatorReply
)

// Machine holds the survey shape. It has no state of its own; sessions are
// passed in and returned by value.
type Machine struct {
	// AskSubject enables the final "desired future topics" question.
	AskSubject bool
}

// Start is the hard reset: any prior stage or scratch is discarded.
func (m Machine) Start() domain.Session {
	return domain.Session{Stage: domain.StageAwaitingSourceChoice}
}

// SelectSource applies a source-choice button payload.
func (m Machine) SelectSource(s domain.Session, payload string) (domain.Session, Step) {
	if s.Stage != domain.StageAwaitingSourceChoice {
		return s, StepIgnored
	}
	key := strings.TrimPrefix(payload, domain.SourcePayloadPrefix)
	if key == domain.CustomSourceOption {
		s.Stage = domain.StageAwaitingCustomSource
		return s, StepAdvanced
	}
	label, ok := domain.SourceLabel(key)
	if !ok {
		label = domain.UnknownSource
	}
	s.Scratch.Source = label
	s.Stage = domain.StageAwaitingFreeReview
	return s, StepAdvanced
}

// Text applies a free-text message.
func (m Machine) Text(s domain.Session, text string) (domain.Session, Step) {
	switch s.Stage {
	case domain.StageAwaitingCustomSource:
		s.Scratch.Source = text
		s.Stage = domain.StageAwaitingFreeReview
		return s, StepAdvanced
	case domain.StageAwaitingFreeReview:
		s.Scratch.Review = text
		if m.AskSubject {
			s.Stage = domain.StageAwaitingSubject
			return s, StepAdvanced
		}
		s.Stage = domain.StageIdle
		return s, StepCompleted
	case domain.StageAwaitingSubject:
		s.Scratch.Subject = text
		s.Stage = domain.StageIdle
		return s, StepCompleted
	case domain.StageAwaitingOperatorReply:
		return s, StepOperatorReply
	default:
		return s, StepIgnored
	}
}

// BeginReply binds an operator session to a review and its respondent.
func (m Machine) BeginReply(reviewID, respondentID int64) domain.Session {
	return domain.Session{
		Stage:        domain.StageAwaitingOperatorReply,
		ReviewID:     reviewID,
		RespondentID: respondentID,
	}
}
