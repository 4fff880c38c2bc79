package question

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/types"
)

const (
	answerYes = "yes"
	answerNo  = "no"
)

// Normalize validates answer against the question type and returns its
// canonical form: lower-case for yes_no, the declared spelling for
// multiple_choice and the trimmed text for numeric and free_text. Numeric
// answers keep the bettor's spelling; Equal compares their exact values.
func Normalize(qtype model.QuestionType, options []string, answer string) (string, error) {
	const op = "question.normalize"
	a := strings.TrimSpace(answer)

	switch qtype {
	case model.TypeYesNo:
		switch strings.ToLower(a) {
		case answerYes:
			return answerYes, nil
		case answerNo:
			return answerNo, nil
		}
		return "", invalidAnswer(op, "answer must be yes or no, got "+strconv.Quote(answer))

	case model.TypeMultipleChoice:
		for _, opt := range options {
			if strings.EqualFold(strings.TrimSpace(opt), a) {
				return strings.TrimSpace(opt), nil
			}
		}
		return "", invalidAnswer(op, strconv.Quote(answer)+" is not one of the declared options").
			WithField("answer", strings.Join(options, " | "))

	case model.TypeNumeric:
		if _, ok := parseNumber(a); !ok {
			return "", invalidAnswer(op, strconv.Quote(answer)+" is not a number")
		}
		return a, nil

	case model.TypeFreeText:
		if a == "" {
			return "", invalidAnswer(op, "answer must not be empty")
		}
		return a, nil
	}

	return "", invalidAnswer(op, "unknown question type "+strconv.Quote(string(qtype)))
}

// Equal compares two answers under the type's equality rule: exact decimal
// equality for numeric questions, case-insensitive match after trimming for
// every other type.
func Equal(qtype model.QuestionType, a, b string) bool {
	if qtype == model.TypeNumeric {
		x, okA := parseNumber(strings.TrimSpace(a))
		y, okB := parseNumber(strings.TrimSpace(b))
		return okA && okB && x.Cmp(y) == 0
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// maxExponentDigits bounds the exponent so a short answer cannot expand
// into a huge exact value.
const maxExponentDigits = 4

// parseNumber reads a plain decimal such as "-3.50" or "1e2" exactly.
// Fractions, hex and other big.Rat spellings are refused.
func parseNumber(s string) (*big.Rat, bool) {
	if s == "" {
		return nil, false
	}
	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(s), "e")
	if !plainDecimal(mantissa, true) {
		return nil, false
	}
	if hasExp {
		digits := strings.TrimLeft(exponent, "+-")
		if len(exponent)-len(digits) > 1 || len(digits) > maxExponentDigits || !plainDecimal(digits, false) {
			return nil, false
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return r, true
}

// plainDecimal reports whether s is digits with at most one '.', an optional
// leading sign when signed is set, and at least one digit.
func plainDecimal(s string, signed bool) bool {
	if signed {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	}
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && signed:
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func invalidAnswer(op, msg string) *types.Error {
	return types.New(types.KindInvalidAnswer, op, msg).WithField("answer", "")
}
