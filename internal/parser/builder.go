package parser

import (
	"strings"
	"time"

	"timetablebot/internal/model"
)

// Report описывает качество разбора таблицы
type Report struct {
	DateResolved bool
	Rows         int
	Lectures     int
}

// Degraded сообщает, что таблица разобрана, но дата или пары не найдены
func (r Report) Degraded() bool {
	return !r.DateResolved || r.Lectures == 0
}

// Parser собирает снимок расписания из таблицы
type Parser struct {
	Roster   Roster
	Defaults model.DefaultLectures
	Location *time.Location
}

// NewParser создает парсер с неизменяемыми списком групп и парами по умолчанию
func NewParser(roster []string, defaults model.DefaultLectures, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	r := make(Roster, len(roster))
	copy(r, roster)
	return &Parser{Roster: r, Defaults: defaults, Location: loc}
}

// Parse собирает снимок. Первая строка таблицы используется как заголовок с датой,
// при её отсутствии датой считается now.
func (p *Parser) Parse(table Table, now time.Time) (*model.Snapshot, Report) {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	var report Report
	if len(table.Rows) == 0 {
		return model.NewSnapshot(midnight(now, loc), nil), report
	}

	date, ok := ParseDate(table.Rows[0], now)
	if !ok {
		date = midnight(now, loc)
	}
	report.DateResolved = ok

	rows := table.Rows[1:]
	report.Rows = len(rows)
	raws := reconstructRows(rows, p.Roster)

	even := isEvenWeek(date)
	byGroup := make(map[string][]model.Lecture, len(p.Roster))
	for _, raw := range raws {
		raw = applyOverlay(raw, p.Defaults, even)
		if raw.Name == nil || raw.Group == nil {
			continue
		}
		lectures := expandOrders(raw)
		byGroup[*raw.Group] = append(byGroup[*raw.Group], lectures...)
		report.Lectures += len(lectures)
	}

	groups := make([]model.Group, 0, len(p.Roster))
	for _, name := range p.Roster {
		groups = append(groups, model.NewGroup(name, byGroup[name]))
	}

	return model.NewSnapshot(date, groups), report
}

// expandOrders превращает "1,2,3" в три пары с одинаковыми остальными полями.
// Пустые номера после запятой в конце отбрасываются.
func expandOrders(raw RawLecture) []model.Lecture {
	if raw.Order == nil {
		return []model.Lecture{newLecture(nil, raw)}
	}

	var lectures []model.Lecture
	for _, slot := range strings.Split(*raw.Order, ",") {
		if order := nonBlank(slot); order != nil {
			lectures = append(lectures, newLecture(order, raw))
		}
	}
	if len(lectures) == 0 {
		return []model.Lecture{newLecture(nil, raw)}
	}
	return lectures
}

func newLecture(order *string, raw RawLecture) model.Lecture {
	return model.NewLectureOpt(order, *raw.Name, raw.Classroom, raw.Subgroup, raw.Teacher)
}
