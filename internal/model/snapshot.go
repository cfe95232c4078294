// Package model содержит модели расписания и подписчиков.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Lecture, Group, Snapshot, Identity
package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"sort"
	"time"
)

// Identity представляет хеш содержимого сущности расписания
type Identity [sha256.Size]byte

// String возвращает короткое шестнадцатеричное представление
func (id Identity) String() string {
	return hex.EncodeToString(id[:6])
}

// IsZero проверяет, вычислен ли идентификатор
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Lecture представляет одну пару группы
type Lecture struct {
	order     *string
	name      string
	classroom *string
	subgroup  *string
	teacher   *string
	id        Identity
}

// NewLecture создает пару и вычисляет её идентификатор.
// Пустые строки в необязательных полях считаются отсутствующими.
func NewLecture(order, name, classroom, subgroup, teacher string) Lecture {
	return NewLectureOpt(optional(order), name, optional(classroom), optional(subgroup), optional(teacher))
}

// NewLectureOpt создает пару из необязательных значений как есть
func NewLectureOpt(order *string, name string, classroom, subgroup, teacher *string) Lecture {
	l := Lecture{
		order:     order,
		name:      name,
		classroom: classroom,
		subgroup:  subgroup,
		teacher:   teacher,
	}
	l.id = l.computeID()
	return l
}

func (l Lecture) computeID() Identity {
	h := sha256.New()
	writeOptional(h, l.order)
	writeOptional(h, &l.name)
	writeOptional(h, l.classroom)
	writeOptional(h, l.subgroup)
	writeOptional(h, l.teacher)
	return sum(h)
}

// ID возвращает идентификатор пары
func (l Lecture) ID() Identity { return l.id }

// Name возвращает название предмета
func (l Lecture) Name() string { return l.name }

// Order возвращает номер пары
func (l Lecture) Order() (string, bool) { return deref(l.order) }

// Classroom возвращает кабинет
func (l Lecture) Classroom() (string, bool) { return deref(l.classroom) }

// Subgroup возвращает подгруппу
func (l Lecture) Subgroup() (string, bool) { return deref(l.subgroup) }

// Teacher возвращает преподавателя
func (l Lecture) Teacher() (string, bool) { return deref(l.teacher) }

// Group представляет расписание одной группы
type Group struct {
	name     string
	lectures []Lecture
	id       Identity
}

// NewGroup создает группу, сортирует пары и вычисляет идентификатор.
// Пары сортируются по подгруппе (без подгруппы первыми), затем по номеру пары
// строковым сравнением: "10" идёт раньше "2".
func NewGroup(name string, lectures []Lecture) Group {
	sorted := make([]Lecture, len(lectures))
	copy(sorted, lectures)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := compareOptional(sorted[i].subgroup, sorted[j].subgroup); c != 0 {
			return c < 0
		}
		return compareOptional(sorted[i].order, sorted[j].order) < 0
	})

	g := Group{name: name, lectures: sorted}
	h := sha256.New()
	writeOptional(h, &g.name)
	for _, l := range g.lectures {
		h.Write(l.id[:])
	}
	g.id = sum(h)
	return g
}

// ID возвращает идентификатор группы
func (g Group) ID() Identity { return g.id }

// Name возвращает название группы
func (g Group) Name() string { return g.name }

// Lectures возвращает копию списка пар
func (g Group) Lectures() []Lecture {
	out := make([]Lecture, len(g.lectures))
	copy(out, g.lectures)
	return out
}

// HasLectures проверяет, есть ли у группы пары
func (g Group) HasLectures() bool { return len(g.lectures) > 0 }

// Snapshot представляет расписание на один день
type Snapshot struct {
	date   time.Time
	groups []Group
	id     Identity
}

// NewSnapshot создает снимок; группы без пар отбрасываются
func NewSnapshot(date time.Time, groups []Group) *Snapshot {
	kept := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.HasLectures() {
			kept = append(kept, g)
		}
	}

	s := &Snapshot{date: date, groups: kept}
	h := sha256.New()
	for _, g := range s.groups {
		h.Write(g.id[:])
	}
	s.id = sum(h)
	return s
}

// ID возвращает идентификатор снимка
func (s *Snapshot) ID() Identity { return s.id }

// Date возвращает дату расписания
func (s *Snapshot) Date() time.Time { return s.date }

// Groups возвращает копию списка групп
func (s *Snapshot) Groups() []Group {
	out := make([]Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group ищет группу по названию
func (s *Snapshot) Group(name string) (Group, bool) {
	for _, g := range s.groups {
		if g.name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Equal сравнивает снимки по идентификатору
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id
}

type lectureJSON struct {
	Order     *string `json:"order,omitempty"`
	Name      string  `json:"name"`
	Classroom *string `json:"classroom,omitempty"`
	Subgroup  *string `json:"subgroup,omitempty"`
	Teacher   *string `json:"teacher,omitempty"`
}

type groupJSON struct {
	Name     string        `json:"name"`
	ID       string        `json:"id"`
	Lectures []lectureJSON `json:"lectures"`
}

// MarshalJSON используется для диагностики
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	groups := make([]groupJSON, 0, len(s.groups))
	for _, g := range s.groups {
		gj := groupJSON{Name: g.name, ID: g.id.String()}
		for _, l := range g.lectures {
			gj.Lectures = append(gj.Lectures, lectureJSON{
				Order:     l.order,
				Name:      l.name,
				Classroom: l.classroom,
				Subgroup:  l.subgroup,
				Teacher:   l.teacher,
			})
		}
		groups = append(groups, gj)
	}

	return json.Marshal(struct {
		ID     string      `json:"id"`
		Date   string      `json:"date"`
		Groups []groupJSON `json:"groups"`
	}{
		ID:     s.id.String(),
		Date:   s.date.Format("2006-01-02"),
		Groups: groups,
	})
}

func writeOptional(h hash.Hash, v *string) {
	if v == nil {
		h.Write([]byte{0})
		return
	}
	var size [9]byte
	size[0] = 1
	binary.BigEndian.PutUint64(size[1:], uint64(len(*v)))
	h.Write(size[:])
	h.Write([]byte(*v))
}

func sum(h hash.Hash) Identity {
	var id Identity
	copy(id[:], h.Sum(nil))
	return id
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}

// compareOptional сравнивает строки, отсутствующее значение меньше любого
func compareOptional(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
