package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/errors"
)

// AdviceInput contains parameters for the ResolveAdvice operations.
type AdviceInput struct {
	Query   string    // free-form question; required unless TopicID is set
	TopicID string    // optional, asks the stored question of a library topic
	Phase   string    // optional override of the derived phase
	Now     time.Time // default: current time
}

// AdviceOutput is resolved advice plus the cycle context it was resolved for.
type AdviceOutput struct {
	Content    string          `json:"content"`
	Outcome    advisor.Outcome `json:"outcome"`
	Persona    string          `json:"persona"`
	Query      string          `json:"query,omitempty"`
	Phase      cycle.Phase     `json:"phase"`
	PhaseLabel string          `json:"phase_label"`
	CycleDay   int             `json:"cycle_day"`
}

// ResolveAdvice answers a question for the current phase. Remote failures
// never surface as errors; only invalid input and storage failures do.
func ResolveAdvice(ctx context.Context, database *sql.DB, adv *advisor.Advisor, input AdviceInput) (*AdviceOutput, error) {
	req, day, err := adviceRequest(database, input, true)
	if err != nil {
		return nil, err
	}
	return adviceOutput(req, day, adv.Resolve(ctx, req)), nil
}

// ResolveAdviceStream is ResolveAdvice delivering the growing text to onPartial.
func ResolveAdviceStream(ctx context.Context, database *sql.DB, adv *advisor.Advisor, input AdviceInput, onPartial func(string)) (*AdviceOutput, error) {
	req, day, err := adviceRequest(database, input, true)
	if err != nil {
		return nil, err
	}
	return adviceOutput(req, day, adv.ResolveStream(ctx, req, onPartial)), nil
}

// TipInput contains parameters for the DailyTip operation.
type TipInput struct {
	Now time.Time // default: current time
}

// DailyTip returns today's care tip for the current phase. The tip is cached
// until the date or the phase changes.
func DailyTip(ctx context.Context, database *sql.DB, adv *advisor.Advisor, input TipInput) (*AdviceOutput, error) {
	req, day, err := adviceRequest(database, AdviceInput{Now: input.Now}, false)
	if err != nil {
		return nil, err
	}
	return adviceOutput(req, day, adv.Resolve(ctx, req)), nil
}

// adviceRequest loads the log snapshot and builds an advisor request.
// With requireQuery set, an empty question is rejected rather than treated
// as a tip request.
func adviceRequest(database *sql.DB, input AdviceInput, requireQuery bool) (advisor.Request, int, error) {
	query := strings.TrimSpace(input.Query)
	if id := strings.TrimSpace(input.TopicID); id != "" {
		topic, ok := advisor.FindTopic(id)
		if !ok {
			return advisor.Request{}, 0, errors.NewInvalidRequest(fmt.Sprintf("unknown topic: %q", id))
		}
		query = topic.Query
	}
	if requireQuery && query == "" {
		return advisor.Request{}, 0, errors.NewInvalidRequest("query or topic_id is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryChars {
		return advisor.Request{}, 0, errors.NewInvalidRequest(fmt.Sprintf("query must be at most %d characters", MaxQueryChars))
	}

	logs, err := loadLogs(database)
	if err != nil {
		return advisor.Request{}, 0, err
	}

	now := nowOr(input.Now)
	phase, day := cycle.PhaseAndDay(logs, now)
	if input.Phase != "" {
		p, ok := cycle.ParsePhase(input.Phase)
		if !ok {
			return advisor.Request{}, 0, errors.NewInvalidRequest("phase must be one of: menstrual, follicular, ovulation, luteal, unknown")
		}
		phase = p
	}

	return advisor.Request{
		Phase: phase,
		Logs:  logs,
		Query: query,
		Now:   now,
	}, day, nil
}

func adviceOutput(req advisor.Request, day int, res advisor.Result) *AdviceOutput {
	return &AdviceOutput{
		Content:    res.Content,
		Outcome:    res.Outcome,
		Persona:    res.Persona,
		Query:      req.Query,
		Phase:      req.Phase,
		PhaseLabel: req.Phase.Label(),
		CycleDay:   day,
	}
}

// TopicsInput contains parameters for the Topics operation.
type TopicsInput struct {
	Now time.Time // default: current time
}

// TopicsOutput is the topic library with suggestions for the current phase.
type TopicsOutput struct {
	Phase       cycle.Phase             `json:"phase"`
	Suggestions advisor.Suggestions     `json:"suggestions"`
	Categories  []advisor.TopicCategory `json:"categories"`
	Personas    []advisor.Persona       `json:"personas"`
}

// Topics lists suggested questions.
func Topics(ctx context.Context, database *sql.DB, input TopicsInput) (*TopicsOutput, error) {
	logs, err := loadLogs(database)
	if err != nil {
		return nil, err
	}
	phase, _ := cycle.PhaseAndDay(logs, nowOr(input.Now))
	return &TopicsOutput{
		Phase:       phase,
		Suggestions: advisor.SuggestionsFor(phase, len(logs) > 0),
		Categories:  advisor.TopicLibrary(),
		Personas:    advisor.Personas(),
	}, nil
}
