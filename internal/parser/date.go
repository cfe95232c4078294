package parser

import (
	"strconv"
	"strings"
	"time"
)

var monthNames = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// ParseDate ищет в первой ячейке заголовка пару "число месяц".
// Год и часовой пояс берутся из now, время обнуляется.
func ParseDate(header []string, now time.Time) (time.Time, bool) {
	if len(header) == 0 {
		return time.Time{}, false
	}

	words := strings.Split(header[0], " ")
	for i := 0; i < len(words); i++ {
		day, err := strconv.Atoi(strings.TrimSpace(words[i]))
		if err != nil || day <= 0 {
			continue
		}
		if i+1 >= len(words) {
			break
		}

		// Слово после числа уже просмотрено, дальше поиск продолжается за ним
		i++
		month, ok := monthIndex(words[i])
		if !ok {
			continue
		}

		date := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		if date.Day() != day || date.Month() != month {
			return time.Time{}, false
		}
		return date, true
	}

	return time.Time{}, false
}

func monthIndex(word string) (time.Month, bool) {
	for i, name := range monthNames {
		if name == word {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// midnight обнуляет время суток в часовом поясе loc
func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// isEvenWeek определяет чётность недели по номеру ISO-недели
func isEvenWeek(date time.Time) bool {
	_, week := date.ISOWeek()
	return week%2 == 0
}
