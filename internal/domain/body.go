package domain

import (
	"errors"
	"strings"
)

// Body layout, one escaped field per line. Operator views parse bodies back
// apart, so ComposeBody and ParseBody must stay exact inverses.
const (
	sourceLabel  = "Откуда узнал(а): "
	reviewLabel  = "Отзыв: "
	subjectLabel = "Пожелания по темам: "
)

// ErrMalformedBody is returned by ParseBody when the body does not follow the
// composed layout, e.g. reviews written before the layout existed.
var ErrMalformedBody = errors.New("domain: malformed review body")

// Answers holds the free-text fields collected by the survey.
type Answers struct {
	Source  string
	Review  string
	Subject string
}

// ComposeBody serializes survey answers into the stored review body.
func ComposeBody(a Answers) string {
	return sourceLabel + escapeField(a.Source) + "\n" +
		reviewLabel + escapeField(a.Review) + "\n" +
		subjectLabel + escapeField(a.Subject)
}

// ParseBody is the inverse of ComposeBody.
func ParseBody(body string) (Answers, error) {
	lines := strings.Split(body, "\n")
	if len(lines) != 3 {
		return Answers{}, ErrMalformedBody
	}
	labels := [3]string{sourceLabel, reviewLabel, subjectLabel}
	var fields [3]string
	for i, line := range lines {
		raw, ok := strings.CutPrefix(line, labels[i])
		if !ok {
			return Answers{}, ErrMalformedBody
		}
		v, err := unescapeField(raw)
		if err != nil {
			return Answers{}, err
		}
		fields[i] = v
	}
	return Answers{Source: fields[0], Review: fields[1], Subject: fields[2]}, nil
}

var fieldEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

func escapeField(s string) string {
	return fieldEscaper.Replace(s)
}

func unescapeField(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", ErrMalformedBody
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			return "", ErrMalformedBody
		}
	}
	return b.String(), nil
}

// Display renders answers for operator views.
func (a Answers) Display() string {
	var b strings.Builder
	b.WriteString(sourceLabel + a.Source + "\n\n")
	b.WriteString(reviewLabel + a.Review)
	if a.Subject != "" {
		b.WriteString("\n\n" + subjectLabel + a.Subject)
	}
	return b.String()
}

// DisplayBody renders a stored body for operator views, falling back to the
// raw text when it cannot be parsed.
func DisplayBody(body string) string {
	a, err := ParseBody(body)
	if err != nil {
		return body
	}
	return a.Display()
}
