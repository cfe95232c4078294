// Package model содержит таблицу пар "по расписанию".
//
// Группа: CONFIG - Конфигурация расписания
// Содержит: LectureWeek, DefaultLecture, DefaultLectures
package model

import (
	"fmt"
	"strings"
)

// LectureWeek определяет, на какой неделе действует пара по умолчанию
type LectureWeek string

const (
	LectureWeekEven  LectureWeek = "even"
	LectureWeekOdd   LectureWeek = "odd"
	LectureWeekEvery LectureWeek = "every"
)

// String возвращает строковое представление недели
func (w LectureWeek) String() string {
	return string(w)
}

// IsValid проверяет валидность недели
func (w LectureWeek) IsValid() bool {
	switch w {
	case LectureWeekEven, LectureWeekOdd, LectureWeekEvery:
		return true
	default:
		return false
	}
}

// Matches проверяет, действует ли пара на чётной (even=true) или нечётной неделе
func (w LectureWeek) Matches(even bool) bool {
	switch w {
	case LectureWeekEvery, "":
		return true
	case LectureWeekEven:
		return even
	case LectureWeekOdd:
		return !even
	default:
		return false
	}
}

// UnmarshalText принимает названия недель без учёта регистра
func (w *LectureWeek) UnmarshalText(text []byte) error {
	value := LectureWeek(strings.ToLower(strings.TrimSpace(string(text))))
	if value == "" {
		value = LectureWeekEvery
	}
	if !value.IsValid() {
		return fmt.Errorf("invalid lecture week: %q", string(text))
	}
	*w = value
	return nil
}

// DefaultLecture представляет пару, которая идёт "по расписанию"
type DefaultLecture struct {
	Week      LectureWeek `yaml:"week" json:"week"`
	Order     string      `yaml:"order,omitempty" json:"order,omitempty"`
	Name      string      `yaml:"name" json:"name"`
	Classroom string      `yaml:"classroom,omitempty" json:"classroom,omitempty"`
	Subgroup  string      `yaml:"subgroup,omitempty" json:"subgroup,omitempty"`
	Teacher   string      `yaml:"teacher,omitempty" json:"teacher,omitempty"`
}

// DefaultGroup представляет список пар по умолчанию для группы
type DefaultGroup struct {
	Name     string           `yaml:"name" json:"name"`
	Lectures []DefaultLecture `yaml:"lectures" json:"lectures"`
}

// DefaultLectures представляет таблицу пар по умолчанию для всех групп
type DefaultLectures struct {
	Groups []DefaultGroup `yaml:"groups" json:"groups"`
}

// Find возвращает первую пару группы, подходящую под чётность недели
func (d DefaultLectures) Find(group string, even bool) (DefaultLecture, bool) {
	for _, g := range d.Groups {
		if g.Name != group {
			continue
		}
		for _, l := range g.Lectures {
			if l.Week.Matches(even) {
				return l, true
			}
		}
	}
	return DefaultLecture{}, false
}

// Validate проверяет таблицу пар по умолчанию
func (d DefaultLectures) Validate() error {
	var errors ValidationErrors

	for _, g := range d.Groups {
		if strings.TrimSpace(g.Name) == "" {
			errors = append(errors, ValidationError{Field: "groups.name", Message: "group name is required"})
			continue
		}
		for i, l := range g.Lectures {
			if strings.TrimSpace(l.Name) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.lectures[%d].name", g.Name, i),
					Message: "lecture name is required",
				})
			}
			if l.Week != "" && !l.Week.IsValid() {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.lectures[%d].week", g.Name, i),
					Message: "invalid week value",
				})
			}
		}
	}

	if errors.HasErrors() {
		return errors
	}
	return nil
}
