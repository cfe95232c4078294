package parser

import (
	"strings"

	"timetablebot/internal/model"
)

// perScheduleName означает, что пара идёт как обычно
const perScheduleName = "По расписанию"

func needsOverlay(raw RawLecture) bool {
	return raw.Name == nil || strings.EqualFold(*raw.Name, perScheduleName)
}

// applyOverlay подставляет пару по умолчанию вместо "По расписанию".
// Название всегда берётся из пары по умолчанию, остальные поля только если их нет в строке.
func applyOverlay(raw RawLecture, defaults model.DefaultLectures, even bool) RawLecture {
	if !needsOverlay(raw) || raw.Group == nil {
		return raw
	}

	fallback, ok := defaults.Find(*raw.Group, even)
	if !ok {
		return raw
	}

	raw.Name = nonBlank(fallback.Name)
	raw.Order = orFallback(raw.Order, fallback.Order)
	raw.Classroom = orFallback(raw.Classroom, fallback.Classroom)
	raw.Subgroup = orFallback(raw.Subgroup, fallback.Subgroup)
	raw.Teacher = orFallback(raw.Teacher, fallback.Teacher)
	return raw
}

func orFallback(v *string, fallback string) *string {
	if v != nil {
		return v
	}
	return nonBlank(fallback)
}
