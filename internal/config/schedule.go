package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"timetablebot/internal/model"

	"go.yaml.in/yaml/v3"
)

// DefaultRoster группы колледжа, для которых собирается расписание
var DefaultRoster = []string{
	"Ит1-23", "Ит3-23", "Ит1-22", "Са1-22", "Са3-22", "С1-22", "С3-22", "Ир1-22", "Ир3-22", "Ир5-22", "Са1-21", "Са3-21", "С1-21",
	"С3-21", "Ип1-21", "Ип3-21", "Ип5-21", "Ир1-21", "Ир3-21", "Ир5-21", "С1-20", "С3-20", "Кс1-20", "Кс3-20", "Кс5-20", "Ип1-20",
	"Ип3-20", "Ир1-20", "Ир3-20", "Ир5-20", "С1-19", "С3-19",
}

// Schedule представляет неизменяемые данные расписания: список групп и пары по умолчанию
type Schedule struct {
	Roster   []string              `yaml:"roster"`
	Defaults model.DefaultLectures `yaml:"default_lectures"`
}

// LoadSchedule читает файл расписания в YAML или JSON.
// Список групп из окружения имеет приоритет над файлом.
func LoadSchedule(path string, groupNames []string) (*Schedule, error) {
	schedule := &Schedule{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schedule file: %w", err)
		}
		if err := yaml.Unmarshal(data, schedule); err != nil {
			return nil, fmt.Errorf("failed to parse schedule file %s: %w", path, err)
		}
	}

	if len(groupNames) > 0 {
		schedule.Roster = groupNames
	}
	if len(schedule.Roster) == 0 {
		schedule.Roster = append([]string(nil), DefaultRoster...)
	}

	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("schedule validation failed: %w", err)
	}
	return schedule, nil
}

// Validate проверяет список групп и пары по умолчанию
func (s *Schedule) Validate() error {
	var errs model.ValidationErrors

	seen := make(map[string]bool, len(s.Roster))
	for _, name := range s.Roster {
		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, model.ValidationError{Field: "roster", Message: "group name is required"})
		case strings.Contains(name, " "):
			errs = append(errs, model.ValidationError{Field: "roster", Message: fmt.Sprintf("group name %q must be a single word", name)})
		case seen[name]:
			errs = append(errs, model.ValidationError{Field: "roster", Message: fmt.Sprintf("duplicate group %q", name)})
		}
		seen[name] = true
	}

	if err := s.Defaults.Validate(); err != nil {
		var defaultsErrs model.ValidationErrors
		if errors.As(err, &defaultsErrs) {
			errs = append(errs, defaultsErrs...)
		} else {
			errs = append(errs, model.ValidationError{Field: "default_lectures", Message: err.Error()})
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// HasGroup проверяет, что группа есть в списке
func (s *Schedule) HasGroup(name string) bool {
	for _, g := range s.Roster {
		if g == name {
			return true
		}
	}
	return false
}
