package scraper

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncoding кодировка страниц сайта колледжа
const DefaultEncoding = "windows-1251"

// Decode переводит тело ответа из однобайтовой кодировки в UTF-8
func Decode(body []byte, encoding string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	switch name {
	case "", DefaultEncoding:
		return charmap.Windows1251.NewDecoder().String(string(body))
	case "utf-8", "utf8":
		return string(body), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

// ValidEncoding проверяет, что кодировка известна
func ValidEncoding(encoding string) bool {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf8" {
		return true
	}
	_, err := htmlindex.Get(name)
	return err == nil
}
