package cmd

import (
	"math/rand"
	"regexp"

	"github.com/hsolanki/seochat/internal/present"
)

var examples = map[string]string{
	"Audit a backlink profile":      `seochat "how healthy is the backlink profile of example.com?"`,
	"Find keyword opportunities":    `seochat "find long-tail keyword ideas around \"coffee grinder\" with low difficulty"`,
	"Check rankings from a pipe":    `cat keywords.txt | seochat ask "which of these keywords does example.com rank for?"`,
	"Compare two competing domains": `seochat "compare the organic visibility of example.com and example.org"`,
}

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc
}

func cheapHighlighting(s present.Styles, code string) string {
	code = regexp.
		MustCompile(`"([^"\\]|\\.)*"`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Quote.Render(x)
		})
	code = regexp.
		MustCompile(`\|`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Pipe.Render(x)
		})
	return code
}
