package question

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/internal/domain/types"
)

// MinTextLength is the shortest accepted question prompt.
const MinTextLength = 5

// Definition is a question as submitted by a host.
type Definition struct {
	Text    string
	Type    model.QuestionType
	Options []string
	Cutoff  time.Time
}

// ValidateDefinition checks a question against its event before creation.
// Returned options are trimmed.
func ValidateDefinition(d Definition, eventDate time.Time) ([]string, error) {
	const op = "question.validate"

	if utf8.RuneCountInString(strings.TrimSpace(d.Text)) < MinTextLength {
		return nil, types.New(types.KindInvalidRequest, op, "question must be at least 5 characters").
			WithField("text", "5")
	}
	if !d.Type.Valid() {
		return nil, types.New(types.KindInvalidRequest, op, "unknown question type "+string(d.Type)).
			WithField("type", "yes_no|multiple_choice|numeric|free_text")
	}
	if d.Cutoff.IsZero() {
		return nil, types.New(types.KindInvalidRequest, op, "cutoff time is required").WithField("cutoff_time", "")
	}
	if d.Cutoff.After(eventDate) {
		return nil, types.New(types.KindInvalidRequest, op, "cutoff must not be after the event date").
			WithField("cutoff_time", eventDate.UTC().Format(time.RFC3339))
	}

	if d.Type != model.TypeMultipleChoice {
		if len(d.Options) > 0 {
			return nil, types.New(types.KindInvalidRequest, op, "options are only allowed on multiple_choice questions").
				WithField("options", "")
		}
		return nil, nil
	}

	if len(d.Options) == 0 {
		return nil, types.New(types.KindInvalidRequest, op, "multiple_choice questions need options").
			WithField("options", "1")
	}
	seen := make(map[string]struct{}, len(d.Options))
	out := make([]string, 0, len(d.Options))
	for _, opt := range d.Options {
		trimmed := strings.TrimSpace(opt)
		if trimmed == "" {
			return nil, types.New(types.KindInvalidRequest, op, "options must not be empty").WithField("options", "")
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			return nil, types.New(types.KindInvalidRequest, op, "duplicate option "+trimmed).WithField("options", "")
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}
