package shell

import (
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// isText reports whether content can be printed as UTF-8 text.
func isText(content []byte) bool {
	return utf8.Valid(content)
}

func detectType(content []byte) string {
	return mimetype.Detect(content).String()
}
