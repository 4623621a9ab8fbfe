package advisor

import "strings"

// Persona is a tone strategy for remote prompts and local fallback text.
type Persona struct {
	Name  string `json:"name"`
	Label string `json:"label"`

	// PromptTemplate is the system instruction sent with every remote request.
	PromptTemplate string `json:"-"`

	// FallbackPrefix is prepended to locally produced answers.
	FallbackPrefix string `json:"-"`

	// Transform rewrites locally produced answers. It may only add framing
	// around the text, never change it.
	Transform func(string) string `json:"-"`
}

const (
	PersonaGuardian = "guardian"
	PersonaExpert   = "expert"
	PersonaWit      = "wit"
)

var personas = map[string]Persona{
	PersonaGuardian: {
		Name:           PersonaGuardian,
		Label:          "温情守护",
		PromptTemplate: "你是一位极其温柔的男朋友，主打情感支持。开头用宠溺语气，给出 3 条实用建议，多用 emoji，严禁使用加粗符号（**），200 字以内。",
	},
	PersonaExpert: {
		Name:           PersonaExpert,
		Label:          "医疗专家",
		PromptTemplate: "你是一位科学严谨的妇科健康顾问，侧重医学依据。用平实的语言给出 3 条建议，必要时提示就医，严禁使用加粗符号（**），200 字以内。",
		FallbackPrefix: "【健康提示】",
	},
	PersonaWit: {
		Name:           PersonaWit,
		Label:          "幽默伴侣",
		PromptTemplate: "你是一位风趣幽默的男朋友，用轻松的语气缓解经期焦虑。给出 3 条实用建议，多用 emoji，严禁使用加粗符号（**），200 字以内。",
		Transform:      func(s string) string { return s + " 😜" },
	},
}

// PersonaNames lists the known personas in display order.
var PersonaNames = []string{PersonaGuardian, PersonaExpert, PersonaWit}

// LookupPersona returns the named persona, or the guardian persona when the
// name is unknown.
func LookupPersona(name string) Persona {
	if p, ok := personas[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return personas[PersonaGuardian]
}

// Personas returns all personas in display order.
func Personas() []Persona {
	result := make([]Persona, 0, len(PersonaNames))
	for _, name := range PersonaNames {
		result = append(result, personas[name])
	}
	return result
}

// Apply frames locally produced text in the persona's voice.
func (p Persona) Apply(text string) string {
	text = p.FallbackPrefix + text
	if p.Transform != nil {
		text = p.Transform(text)
	}
	return text
}
