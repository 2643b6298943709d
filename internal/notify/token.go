package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AnswerTokenPrefix starts every reply-button payload. The full payload
// answer:<review_id>:<respondent_id> is stored by Telegram on sent messages,
// so the format must not change.
const AnswerTokenPrefix = "answer:"

// ErrMalformedToken is returned by ParseAnswerToken.
var ErrMalformedToken = errors.New("notify: malformed answer token")

// FormatAnswerToken builds the reply-button payload for a review.
func FormatAnswerToken(reviewID, respondentID int64) string {
	return fmt.Sprintf("%s%d:%d", AnswerTokenPrefix, reviewID, respondentID)
}

// IsAnswerToken reports whether a button payload belongs to the reply flow.
func IsAnswerToken(payload string) bool {
	return strings.HasPrefix(payload, AnswerTokenPrefix)
}

// ParseAnswerToken recovers the review and respondent ids from a payload.
func ParseAnswerToken(payload string) (reviewID, respondentID int64, err error) {
	rest, ok := strings.CutPrefix(payload, AnswerTokenPrefix)
	if !ok {
		return 0, 0, ErrMalformedToken
	}
	rawReview, rawRespondent, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, ErrMalformedToken
	}
	if reviewID, ok = parseID(rawReview); !ok {
		return 0, 0, ErrMalformedToken
	}
	if respondentID, ok = parseID(rawRespondent); !ok {
		return 0, 0, ErrMalformedToken
	}
	return reviewID, respondentID, nil
}

// parseID accepts plain decimal digits naming a positive id.
func parseID(raw string) (int64, bool) {
	if raw == "" || raw[0] < '0' || raw[0] > '9' {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
