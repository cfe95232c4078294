// Package parser содержит разбор HTML-страницы расписания в снимок.
//
// Группа: PARSER - Разбор расписания
// Содержит: Table, ParseTables, ParseDate, Parser
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Table представляет таблицу как матрицу текстовых ячеек
type Table struct {
	Rows [][]string
}

// Selection определяет, какие таблицы страницы разбирать
type Selection int

const (
	SelectFirst Selection = iota
	SelectLast
	SelectAll
)

// ParseTables разбирает HTML и возвращает выбранные таблицы.
// Таблицы без единой непустой строки не возвращаются.
func ParseTables(html string, sel Selection) []Table {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	nodes := doc.Find("table")
	switch sel {
	case SelectFirst:
		nodes = nodes.First()
	case SelectLast:
		nodes = nodes.Last()
	}

	var tables []Table
	nodes.Each(func(_ int, s *goquery.Selection) {
		if t, ok := parseTable(s); ok {
			tables = append(tables, t)
		}
	})
	return tables
}

// ParseFirstTable возвращает первую таблицу страницы
func ParseFirstTable(html string) (Table, bool) {
	return single(ParseTables(html, SelectFirst))
}

// ParseLastTable возвращает последнюю таблицу страницы
func ParseLastTable(html string) (Table, bool) {
	return single(ParseTables(html, SelectLast))
}

// ParseAllTables возвращает все непустые таблицы страницы
func ParseAllTables(html string) []Table {
	return ParseTables(html, SelectAll)
}

func single(tables []Table) (Table, bool) {
	if len(tables) == 0 {
		return Table{}, false
	}
	return tables[0], true
}

func parseTable(table *goquery.Selection) (Table, bool) {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Children().Each(func(_ int, cell *goquery.Selection) {
			// Пустые ячейки отбрасываются: объединённая ячейка сдвигает строку влево
			if text := normalize(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})

	if len(rows) == 0 {
		return Table{}, false
	}
	return Table{Rows: rows}, true
}
