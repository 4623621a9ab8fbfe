package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hbiui/LunaCare/internal/cycle"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/errors"
)

// DefaultSymptoms are offered on every log form.
var DefaultSymptoms = []string{"痛经", "腰酸", "头痛", "长痘", "乳房胀痛", "失眠", "食欲大增", "疲劳"}

// DefaultSymptomEmoji is used when a custom symptom is added without one.
const DefaultSymptomEmoji = "✨"

// SymptomInput contains parameters for the AddSymptom operation.
type SymptomInput struct {
	Name  string
	Emoji string // default: ✨
}

// AddSymptom stores a custom symptom. Names are unique and may not shadow a
// default symptom.
func AddSymptom(ctx context.Context, database *sql.DB, input SymptomInput) (*cycle.Symptom, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if utf8.RuneCountInString(name) > MaxSymptomChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("name must be at most %d characters", MaxSymptomChars))
	}
	for _, d := range DefaultSymptoms {
		if d == name {
			return nil, errors.NewConflict(fmt.Sprintf("%q is a default symptom", name))
		}
	}

	emoji := strings.TrimSpace(input.Emoji)
	if emoji == "" {
		emoji = DefaultSymptomEmoji
	}

	s := &cycle.Symptom{
		Name:      name,
		Emoji:     emoji,
		CreatedAt: time.Now().Unix(),
	}
	if err := db.InsertSymptom(database, s); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict(fmt.Sprintf("symptom %q already exists", name))
		}
		return nil, err
	}
	return s, nil
}

// DeleteSymptom removes a custom symptom. Logs that recorded it keep the name.
func DeleteSymptom(ctx context.Context, database *sql.DB, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewInvalidRequest("name is required")
	}
	return db.DeleteSymptom(database, name)
}

// SymptomsOutput lists the default and custom symptoms.
type SymptomsOutput struct {
	Defaults []string        `json:"defaults"`
	Custom   []cycle.Symptom `json:"custom"`
}

// ListSymptoms returns the symptoms offered when logging.
func ListSymptoms(ctx context.Context, database *sql.DB) (*SymptomsOutput, error) {
	custom, err := db.ListSymptoms(database)
	if err != nil {
		return nil, err
	}
	return &SymptomsOutput{
		Defaults: append([]string(nil), DefaultSymptoms...),
		Custom:   custom,
	}, nil
}
