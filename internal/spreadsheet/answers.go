package spreadsheet

import (
	"bytes"
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"github.com/victornm/ecoquest/internal/domain"
)

const correctMark = "(*)"

var (
	answerRe        = regexp.MustCompile(`\[[^\]]+\]`)
	correctAnswerRe = regexp.MustCompile(`\[\(\*\)[^\]]+\]`)
)

// FormatAnswers renders an Answers document as a single cell, e.g.
// "[wrong];[(*)right]". A value that is not an Answers document is returned
// as it is and a nil value as an empty cell.
func FormatAnswers(answers *string) string {
	if answers == nil {
		return ""
	}

	var qa domain.QuestionAnswers
	if err := json.Unmarshal([]byte(*answers), &qa); err != nil {
		return *answers
	}

	cells := make([]string, 0, len(qa.AllAnswers))
	for _, a := range qa.AllAnswers {
		if slices.Contains(qa.CorrectAnswers, a) {
			a = correctMark + a
		}
		cells = append(cells, "["+a+"]")
	}
	return strings.Join(cells, ";")
}

// ParseAnswers turns a cell written by FormatAnswers back into an Answers
// document. Text outside brackets is ignored.
func ParseAnswers(cell string) string {
	qa := domain.QuestionAnswers{
		AllAnswers:     unwrap(answerRe.FindAllString(cell, -1)),
		CorrectAnswers: unwrap(correctAnswerRe.FindAllString(cell, -1)),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding two string slices cannot fail.
	_ = enc.Encode(qa)
	return strings.TrimRight(buf.String(), "\n")
}

func unwrap(matches []string) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSuffix(strings.TrimPrefix(m, "["), "]")
		out = append(out, strings.ReplaceAll(m, correctMark, ""))
	}
	return out
}
