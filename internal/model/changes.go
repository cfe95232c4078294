package model

// Changes возвращает названия групп из ростера, расписание которых изменилось.
//
// Если новый снимок отсутствует (не удалось получить или разобрать страницу),
// изменений нет. Если отсутствует предыдущий, изменёнными считаются все группы ростера.
func Changes(prev, next *Snapshot, roster []string) []string {
	if next == nil {
		return nil
	}

	if prev == nil {
		changed := make([]string, len(roster))
		copy(changed, roster)
		return changed
	}

	if prev.Equal(next) {
		return nil
	}

	var changed []string
	for _, name := range roster {
		before, hadBefore := prev.Group(name)
		after, hasAfter := next.Group(name)

		switch {
		case hadBefore != hasAfter:
			changed = append(changed, name)
		case hadBefore && before.ID() != after.ID():
			changed = append(changed, name)
		}
	}

	return changed
}
