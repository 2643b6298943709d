package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeBody_Layout(t *testing.T) {
	body := ComposeBody(Answers{Source: "В сторонних каналах и СМИ", Review: "Loved it", Subject: "more sculpture"})
	require.Equal(t, "Откуда узнал(а): В сторонних каналах и СМИ\nОтзыв: Loved it\nПожелания по темам: more sculpture", body)
}

func TestParseBody_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"Loved it",
		"line one\nline two",
		"ends with newline\n",
		"\n\nОтзыв: fake label",
		`back\slash and \n literal`,
		"trailing backslash \\",
		"windows\r\nnewline",
		"Откуда узнал(а): nested label",
		"emoji ❤️ and spaces   ",
	}
	sources := make([]string, 0, len(SourceOptions)+2)
	for _, o := range SourceOptions {
		sources = append(sources, o.Label)
	}
	sources = append(sources, UnknownSource, "от друга\nпо телефону")

	for _, source := range sources {
		for _, review := range texts {
			for _, subject := range texts {
				in := Answers{Source: source, Review: review, Subject: subject}
				out, err := ParseBody(ComposeBody(in))
				require.NoError(t, err, "answers=%q", in)
				require.Equal(t, in, out)
			}
		}
	}
}

func TestParseBody_Malformed(t *testing.T) {
	cases := []string{
		"",
		"Отзыв: legacy\n\nОткуда узнал(а): Через афишный сервис",
		"Откуда узнал(а): a\nОтзыв: b",
		"Откуда узнал(а): a\nОтзыв: b\nТемы: c",
		"Откуда узнал(а): a\\\nОтзыв: b\nПожелания по темам: c",
		"Откуда узнал(а): a\\x\nОтзыв: b\nПожелания по темам: c",
	}
	for _, body := range cases {
		_, err := ParseBody(body)
		require.ErrorIs(t, err, ErrMalformedBody, "body=%q", body)
	}
}

func TestDisplayBody(t *testing.T) {
	body := ComposeBody(Answers{Source: "src", Review: "text", Subject: ""})
	require.Equal(t, "Откуда узнал(а): src\n\nОтзыв: text", DisplayBody(body))

	body = ComposeBody(Answers{Source: "src", Review: "text", Subject: "topics"})
	require.Contains(t, DisplayBody(body), "Пожелания по темам: topics")

	require.Equal(t, "legacy body", DisplayBody("legacy body"))
}
