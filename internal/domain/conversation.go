package domain

// Stage is a named point in a user's conversation.
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageAwaitingSourceChoice  Stage = "awaiting_source_choice"
	StageAwaitingCustomSource  Stage = "awaiting_custom_source"
	StageAwaitingFreeReview    Stage = "awaiting_free_review"
	StageAwaitingSubject       Stage = "awaiting_subject"
	StageAwaitingOperatorReply Stage = "awaiting_operator_reply"
)

// Valid reports whether s belongs to the closed set of stages.
func (s Stage) Valid() bool {
	switch s {
	case StageIdle, StageAwaitingSourceChoice, StageAwaitingCustomSource,
		StageAwaitingFreeReview, StageAwaitingSubject, StageAwaitingOperatorReply:
		return true
	}
	return false
}

// Session is the ephemeral per-user conversation state. Respondent sessions
// use Scratch; operator sessions use the bound review and respondent ids.
type Session struct {
	Stage   Stage
	Scratch Answers

	ReviewID     int64
	RespondentID int64
}

// IdleSession is the initial state of every user.
func IdleSession() Session {
	return Session{Stage: StageIdle}
}
