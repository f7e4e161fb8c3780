package render

import "strings"

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
)

// Escape quotes the characters LaTeX treats specially so s is typeset verbatim.
// Line breaks become spaces; a blank line would end the paragraph.
func Escape(s string) string {
	return latexReplacer.Replace(s)
}
