package usecase

import (
	"fmt"
	"strings"

	"feedback-bot/internal/domain"
)

// Chat copy shown to respondents and operators.
const (
	textAskSource       = "Откуда вы узнали о выставке?"
	textAskCustomSource = "Пожалуйста, напишите, откуда вы узнали о выставке:"
	textAskFreeReview   = "В свободной форме расскажите, как вам выставка? Какие произведения понравились больше всего?"
	textAskSubject      = "Какие темы вам было бы интересно увидеть на следующих выставках?"
	textSaveFailed      = "Не удалось сохранить отзыв. Пожалуйста, отправьте ответ ещё раз чуть позже."

	textOperatorOnly   = "Команда доступна только администратору."
	textAccessDenied   = "Доступ запрещён."
	textNoNewReviews   = "Нет новых отзывов."
	textNoReviews      = "Отзывов пока нет."
	textUnansweredHead = "📋 Необработанные отзывы:"
	textAnsweredHead   = "✅ Обработанные отзывы:"
	textNoUnanswered   = "Нет необработанных отзывов."
	textNoAnswered     = "Нет обработанных отзывов."
	textAnswerUsage    = "Пожалуйста, укажите ID отзыва. Пример: /answer 123"
	textBadToken       = "Не удалось распознать отзыв по этой кнопке. Используйте /answer <id>."
	textReplySent      = "Ответ отправлен и отзыв помечен как отвеченный."
	textReplyToUser    = "Администратор ответил на ваш отзыв:\n\n"
)

const textGreeting = "Спасибо, что посетили выставку современного искусства «Зачем родился?» в Сити-парке «Град»! " +
	"Будем признательны, если вы поделитесь впечатлениями о событии и ответите на несколько вопросов. " +
	"Это займёт пару минут."

const textThanks = "Спасибо за обратную связь! Мы очень ценим мнение каждого посетителя ❤️\n" +
	"Ваш отзыв поможет нам стать лучше."

const textHelp = "📋 Админ команды:\n\n" +
	"/reviews - просмотр необработанных отзывов;\n" +
	"/all_reviews - просмотр всех отзывов: обработанных (с ответами) и необработанных;\n" +
	"/answer <id> - ответить на отзыв с определённым id;\n" +
	"/stats - статистика по отзывам;\n" +
	"/admin - этот список."

func textReviewNotFound(id int64) string {
	return fmt.Sprintf("Отзыв с ID %d не найден.", id)
}

func textAlreadyAnswered(id int64) string {
	return fmt.Sprintf("Отзыв #%d уже обработан.", id)
}

func textEnterReply(id int64) string {
	return fmt.Sprintf("Введите ответ на отзыв #%d:", id)
}

func textDeliveryFailed(err error) string {
	return fmt.Sprintf("Не удалось отправить сообщение пользователю: %v", err)
}

func textMarkFailed(id int64) string {
	return fmt.Sprintf("Ответ доставлен, но отметить отзыв #%d как отвеченный не удалось. Проверьте хранилище.", id)
}

func textStats(respondents, reviews int) string {
	return fmt.Sprintf("📊 Статистика:\n\nУникальных пользователей: %d\nВсего отзывов: %d", respondents, reviews)
}

// reviewText renders a stored review with its body split back into fields.
func reviewText(r domain.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Отзыв #%d от @%s (id: %d):\n\n%s", r.ID, r.HandleOrUnknown(), r.RespondentID, domain.DisplayBody(r.Body))
	if r.Answered {
		b.WriteString("\n\n💬 Ответ администратора:\n")
		b.WriteString(r.OperatorReply)
	}
	return b.String()
}
