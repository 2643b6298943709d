package domain

import "strings"

const (
	// SourcePayloadPrefix prefixes every source-choice button payload.
	SourcePayloadPrefix = "source_"
	// CustomSourceOption is the option that asks the respondent to type a source.
	CustomSourceOption = "5"
	// UnknownSource is recorded when a source payload matches no option.
	UnknownSource = "Неизвестно"
)

// SourceOption is one fixed answer to "where did you hear about the event".
type SourceOption struct {
	Key   string
	Label string
}

// SourceOptions are the fixed choices in display order.
var SourceOptions = []SourceOption{
	{Key: "1", Label: "Увидел(а)/услышал(а) информацию в Граде"},
	{Key: "2", Label: "В соцсетях Града (Telegram, ВК и др.)"},
	{Key: "3", Label: "В сторонних каналах и СМИ"},
	{Key: "4", Label: "Через афишный сервис"},
}

// SourceLabel returns the label for a fixed option key.
func SourceLabel(key string) (string, bool) {
	for _, o := range SourceOptions {
		if o.Key == key {
			return o.Label, true
		}
	}
	return "", false
}

// SourcePayload returns the button payload for an option key.
func SourcePayload(key string) string {
	return SourcePayloadPrefix + key
}

// IsSourcePayload reports whether a button payload belongs to the source keyboard.
func IsSourcePayload(payload string) bool {
	return strings.HasPrefix(payload, SourcePayloadPrefix)
}

// SourceKeyboard returns the source-choice buttons, one per row, custom last.
func SourceKeyboard() [][]Button {
	rows := make([][]Button, 0, len(SourceOptions)+1)
	for _, o := range SourceOptions {
		rows = append(rows, []Button{{Text: o.Label, Payload: SourcePayload(o.Key)}})
	}
	rows = append(rows, []Button{{Text: "Свой вариант", Payload: SourcePayload(CustomSourceOption)}})
	return rows
}
