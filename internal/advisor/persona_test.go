package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hbiui/LunaCare/internal/cycle"
)

func TestLookupPersona(t *testing.T) {
	assert.Equal(t, PersonaExpert, LookupPersona(" Expert ").Name)
	assert.Equal(t, PersonaWit, LookupPersona("wit").Name)
	assert.Equal(t, PersonaGuardian, LookupPersona("").Name)
	assert.Equal(t, PersonaGuardian, LookupPersona("pirate").Name)
}

func TestPersona_Apply(t *testing.T) {
	assert.Equal(t, "hello", LookupPersona(PersonaGuardian).Apply("hello"))
	assert.Equal(t, "【健康提示】hello", LookupPersona(PersonaExpert).Apply("hello"))
	assert.Equal(t, "hello 😜", LookupPersona(PersonaWit).Apply("hello"))
}

func TestPersonas_Order(t *testing.T) {
	ps := Personas()
	assert.Len(t, ps, 3)
	for i, p := range ps {
		assert.Equal(t, PersonaNames[i], p.Name)
		assert.NotEmpty(t, p.Label)
		assert.NotEmpty(t, p.PromptTemplate)
	}
}

func TestTopicLibrary(t *testing.T) {
	lib := TopicLibrary()
	assert.Len(t, lib, 6)
	assert.Equal(t, "basics", lib[0].ID)

	seen := map[string]bool{}
	for _, c := range lib {
		assert.NotEmpty(t, c.Topics, c.ID)
		for _, topic := range c.Topics {
			assert.False(t, seen[topic.ID], "duplicate topic %s", topic.ID)
			seen[topic.ID] = true
			assert.NotEmpty(t, topic.Query)
		}
	}

	// Callers get a copy.
	lib[0].Topics[0].Title = "changed"
	assert.NotEqual(t, "changed", TopicLibrary()[0].Topics[0].Title)
}

func TestFindTopic(t *testing.T) {
	topic, ok := FindTopic("s1")
	assert.True(t, ok)
	assert.Contains(t, topic.Query, "痛经")

	_, ok = FindTopic("zz")
	assert.False(t, ok)
}

func TestSuggestionsFor(t *testing.T) {
	s := SuggestionsFor(cycle.PhaseUnknown, false)
	assert.Contains(t, s.Headline, "记录第一次经期")

	s = SuggestionsFor(cycle.PhaseMenstrual, true)
	assert.Contains(t, s.Headline, "缓解痛经")
	assert.Equal(t, baseQuickTags, s.QuickTags)

	s = SuggestionsFor(cycle.PhaseLuteal, true)
	assert.Contains(t, s.Headline, "情绪波动")
	assert.Equal(t, "✨ 黄金期建议", s.QuickTags[0])
	assert.Len(t, s.QuickTags, 5)

	s = SuggestionsFor(cycle.PhaseFollicular, true)
	assert.Contains(t, s.Headline, "黄金期")
}
