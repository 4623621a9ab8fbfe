package advisor

import "github.com/hbiui/LunaCare/internal/cycle"

// Topic is a suggested question that can be sent as an advice query.
type Topic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Query string `json:"query"`
}

// TopicCategory groups related topics.
type TopicCategory struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Topics      []Topic `json:"topics"`
}

// Suggestions are phase-aware prompts shown next to the topic library.
type Suggestions struct {
	Headline  string   `json:"headline"`
	QuickTags []string `json:"quick_tags"`
}

var topicLibrary = []TopicCategory{
	{
		ID:          "basics",
		Title:       "生理周期小课堂",
		Description: "快速了解月经、排卵和黄体期的基础知识。",
		Topics: []Topic{
			{ID: "b1", Title: "月经期要注意什么？", Query: "科普一下女生月经期（生理期）的身体变化和注意事项，作为男朋友需要特别注意什么？"},
			{ID: "b2", Title: "什么是排卵期？", Query: "简单解释一下什么是排卵期？这个时候女生的身体和情绪会有什么变化？"},
			{ID: "b3", Title: "什么是黄体期(PMS)？", Query: "什么是黄体期或者PMS（经前综合症）？为什么这个时候她容易情绪不稳定？"},
			{ID: "b4", Title: "月经周期怎么算？", Query: "月经周期是如何计算的？正常的周期范围是多少天？"},
			{ID: "b5", Title: "如何通过体温判断周期？", Query: "基础体温（BBT）是如何随生理周期变化的？男友如何帮她监测排卵？"},
		},
	},
	{
		ID:          "survival",
		Title:       "男友生存指南",
		Description: "在她不舒服的时候，如何做一个满分男友？",
		Topics: []Topic{
			{ID: "s1", Title: "她痛经怎么办？", Query: "女朋友现在痛经很难受，除了喝热水，我还能做哪些具体的事情来缓解她的疼痛？请给我3个立刻能做的建议。"},
			{ID: "s2", Title: "怎么哄经期发脾气的她？", Query: "女朋友生理期情绪很差、易怒，我该怎么哄她？有哪些话是绝对不能说的？"},
			{ID: "s3", Title: "经期可以运动吗？", Query: "女生来大姨妈的时候可以运动吗？适合做什么运动，不适合做什么？"},
			{ID: "s4", Title: "如何帮她挑选卫生巾？", Query: "超市里的卫生巾种类繁多（日用、夜用、护垫、安睡裤、棉条、液体卫生巾），男友如何帮她选购最合适的？"},
			{ID: "s5", Title: "经期可以洗澡/洗头吗？", Query: "生理期洗头洗澡的科学建议是什么？有哪些细节需要注意？"},
		},
	},
	{
		ID:          "recovery",
		Title:       "经后“黄金周”",
		Description: "经期结束后的 7 天是变美的黄金期，该如何规划？",
		Topics: []Topic{
			{ID: "r1", Title: "什么是经后黄金期？", Query: "经期结束后的第一个礼拜为什么叫“黄金期”？身体代谢和激素有什么特别？"},
			{ID: "r2", Title: "经后补血吃什么？", Query: "月经结束后，女生失血较多，男友应该买些什么补血、补铁的食物或补品给她？"},
			{ID: "r3", Title: "黄金期运动减脂建议", Query: "经后一周是减脂效率最高的时候吗？推荐一套适合女生的训练方案。"},
			{ID: "r4", Title: "经后护肤要点", Query: "黄金周皮肤状态最好，这个时候应该侧重哪些护肤步骤（如补水、深度清洁）？"},
		},
	},
	{
		ID:          "diet",
		Title:       "饮食与投喂",
		Description: "在这个特殊时期，该给她吃什么，不该吃什么？",
		Topics: []Topic{
			{ID: "d1", Title: "经期避雷清单", Query: "女生经期有哪些食物是绝对不能吃的（比如生冷辛辣）？请列一个避雷清单，包含具体的食物种类。"},
			{ID: "d2", Title: "缓解痛经的食疗方", Query: "除了红糖水，还有哪些热饮或甜汤能缓解痛经？请给几个简单易做的方子。"},
			{ID: "d3", Title: "她特别想吃甜食正常吗？", Query: "为什么她经期特别想吃甜食？这时候给她买甜品好吗？有什么健康的替代品？"},
			{ID: "d4", Title: "关于咖啡和茶的建议", Query: "女生在生理期可以喝冰咖啡、奶茶或浓茶吗？咖啡因对子宫收缩有影响吗？"},
		},
	},
	{
		ID:          "emergency",
		Title:       "应急与异常情况",
		Description: "如果发现异常，该什么时候带她去看医生？",
		Topics: []Topic{
			{ID: "e1", Title: "月经突然推迟的原因", Query: "除了怀孕，还有哪些因素（压力、环境、药物）会导致月经突然推迟或提前？"},
			{ID: "e2", Title: "经量过多或过少怎么办？", Query: "怎么判断月经量是否正常？如果出现血块或者经量暴增，男友应该怎么处理？"},
			{ID: "e3", Title: "严重的痛经需要就医吗？", Query: "继发性痛经是什么？如果吃止痛药都没用，可能是哪些妇科问题的征兆？"},
			{ID: "e4", Title: "漏记了记录怎么办？", Query: "如果忘了记录上次的时间，如何根据身体表现（如白带变化、胸胀）反推预测？"},
		},
	},
	{
		ID:          "myths",
		Title:       "科学辟谣与真相",
		Description: "打破老一辈的禁忌，给温情带去科学。",
		Topics: []Topic{
			{ID: "m1", Title: "红糖水真的是神药吗？", Query: "科普：红糖水真的能缓解痛经吗？它的主要作用是什么？有没有更好的替代方案？"},
			{ID: "m2", Title: "经期拔牙、献血的真相", Query: "为什么医生建议女生避开经期做手术、拔牙或献血？凝血功能在此时会有变化吗？"},
			{ID: "m3", Title: "月经会传染吗？", Query: "所谓的“经期同步”（住在一起的女生周期变一致）是有科学依据的吗？"},
			{ID: "m4", Title: "经期不能吃冰淇淋？", Query: "吃冰真的会导致经血凝固吗？如果她实在想吃，男友该怎么权衡？"},
		},
	},
}

// TopicLibrary returns a copy of the built-in topic categories.
func TopicLibrary() []TopicCategory {
	result := make([]TopicCategory, len(topicLibrary))
	for i, c := range topicLibrary {
		c.Topics = append([]Topic(nil), c.Topics...)
		result[i] = c
	}
	return result
}

// FindTopic looks up a topic by ID across all categories.
func FindTopic(id string) (Topic, bool) {
	for _, c := range topicLibrary {
		for _, t := range c.Topics {
			if t.ID == id {
				return t, true
			}
		}
	}
	return Topic{}, false
}

var baseQuickTags = []string{"🤒 缓解痛经", "🔥 艾灸温宫", "🍲 暖宫食谱", "❌ 经期禁忌", "📖 周期科普"}

// SuggestionsFor returns the headline and quick tags for the current phase.
// hasLogs is false before the first period is recorded.
func SuggestionsFor(phase cycle.Phase, hasLogs bool) Suggestions {
	s := Suggestions{}
	switch {
	case !hasLogs:
		s.Headline = "👋 记录第一次经期，让我为你提供照顾策略。"
	case phase == cycle.PhaseMenstrual:
		s.Headline = "🤒 宝贝今天很难受吗？让我教你缓解痛经。"
	case phase == cycle.PhaseLuteal:
		s.Headline = "📉 她最近情绪波动，我该怎么哄她？"
	default:
		s.Headline = "✨ 现在是黄金期，有哪些宠爱建议？"
	}

	if phase == cycle.PhaseMenstrual {
		s.QuickTags = append([]string(nil), baseQuickTags...)
	} else {
		s.QuickTags = append([]string{"✨ 黄金期建议", "🍵 经后补血"}, baseQuickTags[2:]...)
	}
	return s
}
