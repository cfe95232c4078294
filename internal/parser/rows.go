package parser

import (
	"strings"
	"unicode"
)

// continuationOrder означает "номер пары как в предыдущей строке"
const continuationOrder = "-1"

// RawLecture представляет строку таблицы до сборки снимка
type RawLecture struct {
	Order     *string
	Group     *string
	Subgroup  *string
	Name      *string
	Teacher   *string
	Classroom *string
}

// isContinuation проверяет, нужно ли взять номер пары из предыдущей строки
func (r RawLecture) isContinuation() bool {
	return r.Order != nil && *r.Order == continuationOrder
}

// Roster представляет фиксированный список групп
type Roster []string

// Contains проверяет, что первое слово ячейки является группой из списка
func (r Roster) Contains(cell string) bool {
	name, _, _ := strings.Cut(cell, " ")
	for _, g := range r {
		if g == name {
			return true
		}
	}
	return false
}

// rowState переносится между строками таблицы
type rowState struct {
	anchor string
}

// reconstructRows превращает строки таблицы в записи пар.
// Строки без группы или названия отбрасываются.
func reconstructRows(rows [][]string, roster Roster) []RawLecture {
	state := rowState{}
	lectures := make([]RawLecture, 0, len(rows))
	for _, row := range rows {
		var raw RawLecture
		state, raw = parseRow(state, row, roster)
		lectures = append(lectures, raw)
	}

	return filterLectures(repairOrders(lectures))
}

// parseRow разбирает одну строку таблицы с учётом текущей группы
func parseRow(state rowState, row []string, roster Roster) (rowState, RawLecture) {
	if len(row) == 0 {
		return state, RawLecture{}
	}

	var raw RawLecture
	cells := row
	if roster.Contains(cells[0]) {
		state.anchor = cells[0]
		cells = cells[1:]
	}
	raw.Group, raw.Subgroup = splitGroupName(state.anchor)

	if len(cells) > 0 && isOrder(cells[0]) {
		raw.Order = nonBlank(cells[0])
		cells = cells[1:]
	} else {
		raw.Order = ptr(continuationOrder)
	}

	if len(cells) > 0 {
		raw.Name, raw.Teacher = splitTeacher(cells[0])
		cells = cells[1:]
	}

	if len(cells) > 0 {
		raw.Classroom = nonBlank(cells[0])
	}

	return state, raw
}

// repairOrders заменяет заглушку номером предыдущей записи.
// Номер берётся уже исправленный, поэтому цепочка строк наследует его целиком.
func repairOrders(lectures []RawLecture) []RawLecture {
	var prevOrder *string
	for i := range lectures {
		if lectures[i].isContinuation() {
			lectures[i].Order = prevOrder
		}
		prevOrder = lectures[i].Order
	}
	return lectures
}

func filterLectures(lectures []RawLecture) []RawLecture {
	kept := lectures[:0]
	for _, l := range lectures {
		if l.Group == nil || l.Name == nil {
			continue
		}
		if *l.Name == "Нет" || *l.Name == "нет" {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

// isOrder проверяет, что ячейка похожа на номер пары: "1", "2,3", "1,2(1ч)"
func isOrder(cell string) bool {
	for _, r := range cell {
		if unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '(', ')', ',', '.', 'ч', ' ':
			continue
		}
		return false
	}
	return true
}

// splitGroupName делит "Ир3-21 2 п/г" на группу и подгруппу
func splitGroupName(cell string) (*string, *string) {
	words := strings.SplitN(cell, " ", 3)
	var group, subgroup *string
	if len(words) > 0 {
		group = nonBlank(words[0])
	}
	if len(words) > 1 {
		subgroup = nonBlank(words[1])
	}
	return group, subgroup
}

// splitTeacher делит ячейку по последней запятой на предмет и преподавателя
func splitTeacher(cell string) (*string, *string) {
	idx := strings.LastIndex(cell, ",")
	if idx < 0 {
		return nonBlank(cell), nil
	}
	return nonBlank(cell[:idx]), nonBlank(cell[idx+1:])
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string {
	return &s
}
