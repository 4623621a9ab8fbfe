package advisor

import "github.com/hbiui/LunaCare/internal/cycle"

// GenericMessage is the last resort when nothing else applies.
const GenericMessage = "宝贝，我一直都在。今天也要照顾好自己，多喝温水，早点休息哦。❤️"

// QuotaNotice opens the fallback answer when the remote quota is exhausted.
const QuotaNotice = "宝贝，我刚才被太多人咨询啦（配额超限），不过我对你的关心不打折。"

var phaseDefaults = map[cycle.Phase]string{
	cycle.PhaseMenstrual:  "宝贝，现在是特殊时期，肚子可能不舒服。记得多喝暖暖的红糖姜茶，早点休息，我会一直陪着你的。❤️",
	cycle.PhaseFollicular: "生理期终于结束啦！现在是你的黄金变美期，身体代谢加快，心情也会越来越好，要不要一起出去散散步？✨",
	cycle.PhaseOvulation:  "现在身体状态最棒啦！皮肤也会很有光泽。记得多补充水分，保持活力满满哦。🥰",
	cycle.PhaseLuteal:     "最近可能会觉得有点累或者情绪波动，这是正常的生理现象。我会更加温柔地照顾你，累了就靠在我肩膀上。🫂",
	cycle.PhaseUnknown:    "欢迎开启燕子经期！记录第一条数据，我将为你生成专属的宠爱策略。🌸",
}

// PhaseDefault returns the fixed message for phase, if one exists.
func PhaseDefault(phase cycle.Phase) (string, bool) {
	msg, ok := phaseDefaults[phase]
	return msg, ok
}

// localAnswer walks the offline chain: bank match for a query, then the
// phase default, then GenericMessage. It never returns an empty string.
func localAnswer(bank []BankEntry, phase cycle.Phase, query string) string {
	if query != "" {
		if e, ok := Match(bank, query); ok {
			return e.Answer
		}
	}
	if msg, ok := PhaseDefault(phase); ok {
		return msg
	}
	return GenericMessage
}
