// Package formatter содержит форматирование расписания для Telegram.
package formatter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"timetablebot/internal/model"
)

var weekdays = [...]string{
	time.Sunday:    "Воскресенье",
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
}

// DateFormat формат даты в заголовке сообщения
const DateFormat = "02.01.2006"

// MessageFormatter формирует текст сообщения для одной группы
type MessageFormatter interface {
	FormatGroup(snapshot *model.Snapshot, name string) string
}

// HTMLFormatter форматирует расписание в HTML-разметке Telegram
type HTMLFormatter struct{}

// New создает форматтер
func New() *HTMLFormatter {
	return &HTMLFormatter{}
}

// NoLectures текст для группы без пар в снимке
const NoLectures = "Пар нет"

// FormatGroup возвращает сообщение с датой и парами группы.
// Группа, которой нет в снимке, выводится с пометкой NoLectures.
func (f *HTMLFormatter) FormatGroup(snapshot *model.Snapshot, name string) string {
	var b strings.Builder

	b.WriteString(FormatHeader(snapshot.Date()))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", html.EscapeString(name)))

	group, ok := snapshot.Group(name)
	if !ok {
		b.WriteString(NoLectures)
		return b.String()
	}

	for _, lecture := range group.Lectures() {
		b.WriteString(FormatLecture(lecture))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatHeader форматирует дату как "Понедельник, 02.09.2024"
func FormatHeader(date time.Time) string {
	return fmt.Sprintf("%s, %s", weekdays[date.Weekday()], date.Format(DateFormat))
}

// FormatLecture форматирует одну пару
func FormatLecture(lecture model.Lecture) string {
	var b strings.Builder

	if order, ok := lecture.Order(); ok {
		fmt.Fprintf(&b, "<b>#%s</b> ", html.EscapeString(order))
	}
	if classroom, ok := lecture.Classroom(); ok {
		fmt.Fprintf(&b, "%s ", html.EscapeString(classroom))
	}
	if subgroup, ok := lecture.Subgroup(); ok {
		fmt.Fprintf(&b, "· п/г <b>%s</b> ", html.EscapeString(subgroup))
	}
	fmt.Fprintf(&b, "<b>· %s</b>", html.EscapeString(lecture.Name()))

	return b.String()
}
