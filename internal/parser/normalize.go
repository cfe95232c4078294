package parser

import (
	"strings"
	"unicode"
)

// entityReplacer декодирует сущности, оставшиеся после двойного экранирования на сайте
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&nbsp;", " ",
	"&ensp;", " ",
	"&emsp;", " ",
	"&copy;", "©",
	"&mdash;", "—",
	"&ndash;", "–",
	"&shy;", " ",
	"&laquo;", "«",
	"&raquo;", "»",
	"&hellip;", "...",
	"&sect;", "§",
	"&quot;", "\"",
)

// normalize декодирует сущности и схлопывает пробельные символы в один пробел
func normalize(text string) string {
	text = entityReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
