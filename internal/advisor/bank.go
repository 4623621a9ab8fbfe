package advisor

import (
	"strings"
	"unicode/utf8"
)

// Category groups knowledge bank answers.
type Category string

const (
	CategoryMedical   Category = "medical"
	CategoryEmotion   Category = "emotion"
	CategoryLifestyle Category = "lifestyle"
	CategoryDiet      Category = "diet"
)

// BankEntry is one offline answer and the keywords that select it.
type BankEntry struct {
	Keywords []string `json:"keywords"`
	Answer   string   `json:"answer"`
	Category Category `json:"category"`
}

// minMatchScore is the lowest score that selects a bank entry.
const minMatchScore = 1

// Match returns the entry whose keywords best match query.
// The score is the sum of rune lengths of every keyword contained in the
// lowercased query; ties keep the earlier entry.
func Match(bank []BankEntry, query string) (BankEntry, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return BankEntry{}, false
	}

	best, bestScore := -1, 0
	for i, e := range bank {
		score := 0
		for _, kw := range e.Keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				score += utf8.RuneCountInString(kw)
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < minMatchScore {
		return BankEntry{}, false
	}
	return bank[best], true
}

// DefaultBank is the built-in offline answer set, in match priority order.
var DefaultBank = []BankEntry{
	{
		Keywords: []string{"什么是月经", "科普", "生理期是什么", "定义"},
		Answer:   "月经是子宫内膜周期性脱落并排出。这代表你的排卵和生殖系统运作良好，是身体健康的‘信号灯’。这几天我会更加细心地照顾你。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"痛经", "肚子疼", "下腹坠胀", "难受"},
		Answer:   "痛经是前列腺素水平波动引起的子宫收缩。建议：1.热敷小腹（45℃最佳）；2.轻柔按摩合谷穴；3.尝试侧卧位蜷缩。我会一直陪着你的。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"拔牙", "看牙", "补牙"},
		Answer:   "经期严禁拔牙！此时凝血功能下降，拔牙会导致出血不止，且痛觉更敏感。如果只是普通补牙建议也推迟，防止口腔感染风险。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"献血", "抽血"},
		Answer:   "经期绝对不能献血。由于经期本身在失血，此时献血极易诱发贫血、晕厥，且恢复极其缓慢。请在经期结束后至少一周再考虑。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"手术", "开刀"},
		Answer:   "除非是生命攸关的急诊手术，常规手术通常避开经期。凝血机制的改变会增加术中出血量和术后血肿风险。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"纹身", "刺青", "穿耳洞"},
		Answer:   "不建议。经期皮肤更敏感，痛感会放大数倍，且免疫力微降，伤口愈合慢，容易出现红肿或感染。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"紧身裤", "牛仔裤", "塑身衣"},
		Answer:   "经期尽量穿宽松透气的裤子。紧身裤会压迫局部血管，影响血液循环，加重盆腔充血和痛经，还容易滋生细菌引发炎症。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"洗冷水澡", "碰冷水", "洗手"},
		Answer:   "禁忌冷水！冷水刺激会导致子宫平滑肌痉挛，不仅加剧痛经，还可能导致经血排出不畅。务必使用温热水。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"重体力活", "搬重物", "长跑"},
		Answer:   "避免剧烈运动和负重。过度劳累会诱发子宫位置微动，导致经量突然变大或经期延长。休息也是一种战斗。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"螃蟹", "海鲜", "生食"},
		Answer:   "螃蟹属性寒凉，容易引起子宫收缩异常。经期建议避开生冷海鲜，改吃温热的熟食，保护脆弱的肠胃和子宫。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"西瓜", "梨", "柿子", "凉性水果"},
		Answer:   "这些水果属性偏寒。如果实在想吃，建议切小块放至常温，或改吃苹果、葡萄、龙眼等平性及温性水果。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"冰淇淋", "雪糕", "冰奶茶", "冷饮"},
		Answer:   "吃冰会引起盆腔血管收缩，导致经血形成血块排出困难，引发剧烈腹痛。忍耐这几天，等结束后我陪你吃个够。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"咖啡", "美式", "拿铁", "咖啡因"},
		Answer:   "咖啡因可能加重乳房胀痛和焦虑感。对于部分女生，它还会引起血管收缩加重痛经。建议减量或改喝热牛奶。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"喝酒", "红酒", "白酒", "酒精"},
		Answer:   "经期由于酶的改变，身体代谢酒精能力减弱，更容易醉酒且伤肝。同时酒精会扩张血管，可能导致经量莫名增加。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"浓茶", "茶叶", "绿茶"},
		Answer:   "浓茶中的鞣酸会阻碍肠道对铁的吸收。经期失血本就缺铁，喝浓茶无异于雪上加霜。推荐喝淡花茶或姜糖水。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"巧克力", "甜食", "糖果"},
		Answer:   "少量黑巧克力能释放内啡肽缓解压力，但过量高糖食物会导致血糖波动，反而让情绪更不稳定，且容易诱发长痘。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"淋漓不尽", "时间长", "一直不走", "超过十天"},
		Answer:   "如果经期超过10天仍未结束，可能是内分泌失调、肌瘤或炎症信号。如果伴随虚弱，请务必就医检查，不要硬扛。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"异味", "难闻", "腥臭"},
		Answer:   "正常的经血有轻微血腥味。如果有明显的恶臭或瘙痒，可能是细菌性阴道炎的表现。建议勤换卫生巾（每2小时一次）。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"突然不来", "闭经", "没怀上也没来"},
		Answer:   "闭经的常见原因包括：极端减肥、长期熬夜、巨大的精神压力。如果连续三个月没来，必须去做超声和性激素六项检查。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"长痘", "闭口", "皮肤差"},
		Answer:   "这是黄体酮和雄激素比例失衡导致的。经期皮肤屏障脆弱，不要过度清洁，多补水，饮食少油少糖是关键。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"乳房胀痛", "胸疼", "触痛"},
		Answer:   "这是激素波动的典型症状，通常在月经见红后会迅速缓解。穿戴无钢圈的舒适内衣，减少摩擦，保持心情舒畅。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"黄金期", "经后一周", "结束后"},
		Answer:   "经后7天是‘黄金期’。此时雌激素回升，代谢加快，皮肤吸收力最强。这是运动减脂和深度护肤的最佳时机！",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"补铁", "补血", "阿胶", "红枣"},
		Answer:   "经后是补血关键期。推荐：动物血块、瘦肉、木耳。配合富含维C的橙子，能让铁吸收率提升数倍。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"减肥", "瘦身", "减脂"},
		Answer:   "黄金期代谢高，可以适当增加有氧和抗阻练习。此时身体水分不再滞留，体重下降会比较明显，继续加油！",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"怎么哄", "生气了", "不理我"},
		Answer:   "秘诀：1.不反驳，只共情；2.投喂她喜欢的暖胃食物；3.默默把家里收拾干净。行动永远比‘我理解你’有力。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"想吃辣", "嘴馋", "火锅"},
		Answer:   "如果她非常想吃，可以尝试‘微辣’且不喝冷饮，或者陪她吃一顿清淡但精致的日料/粤菜作为补偿，转移注意力。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"睡不着", "失眠", "多梦"},
		Answer:   "激素波动会干扰深度睡眠。睡前帮她泡个暖足浴，或者调暗灯光放一点白噪音。我的肩膀永远是她最好的枕头。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"卫生棉条", "内置", "安全吗"},
		Answer:   "棉条很安全，但必须每4-6小时更换一次，严防TSS（中毒性休克综合征）。对于新手，建议配合护垫使用更安心。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"安睡裤", "夜用", "侧漏"},
		Answer:   "量大的那两晚推荐安睡裤，360度包裹能让她睡得更安稳。如果是普通夜用，建议垫成‘T’字型防止后漏。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"出汗", "潮热"},
		Answer:   "这是植物神经功能受激素影响的短期波动。穿棉质透气的睡衣，多喝温开水补充电解质，通常很快就会过去。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"便秘", "拉肚子", "肠胃不适"},
		Answer:   "前列腺素不仅作用于子宫，也会刺激肠道，导致经期‘拉稀’。建议多吃熟食，避开高纤维生冷蔬菜，保护胃肠。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"美甲", "做指甲"},
		Answer:   "可以做，但注意久坐可能导致下肢血液循环不畅，建议每小时起身活动下。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"桑拿", "汗蒸", "温泉"},
		Answer:   "绝对禁止！经期宫颈口微开，浸泡或高温会导致感染风险和经量暴增。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"按摩", "足疗"},
		Answer:   "避开腰骶部和强力足底按摩（如三阴交穴），防止诱发大出血。轻柔的肩颈按摩是OK的。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"牙龈出血"},
		Answer:   "激素导致牙龈充血，经期更明显。换用软毛牙刷，多补维C即可缓解。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"头晕", "贫血", "站不稳"},
		Answer:   "这是血容量波动的信号。立刻坐下，补充含糖暖饮。长期如此建议查一下血红蛋白。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"体温升高", "发热感"},
		Answer:   "排卵后到经前体温会升高0.3-0.5℃，这是正常的孕酮效应，不是感冒哦。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"感冒药", "止痛药", "布洛芬"},
		Answer:   "痛经严重可以吃布洛芬，建议饭后服用减少胃刺激。感冒药请避开含活血成分的种类。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"喝水", "多喝热水"},
		Answer:   "热水能暖和内脏，通过热传导舒张子宫平滑肌，确实有效，但建议加点姜丝或红枣更佳。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"燕麦", "全谷物"},
		Answer:   "非常推荐。B族维生素能显著缓解经期烦躁和疲劳感。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"香蕉"},
		Answer:   "富含钾和B6，能平衡心情并缓解水肿，是经期非常优秀的投喂水果。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"坚果", "核桃", "杏仁"},
		Answer:   "富含维生素E和不饱和脂肪酸，能辅助减轻前列腺素引起的疼痛。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"菠菜", "木耳", "猪肝"},
		Answer:   "补铁三剑客，建议配合酸性食物（如西红柿）一起吃，吸收效果最好。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"山楂", "红曲"},
		Answer:   "有轻微活血化瘀作用，适合经血排出不畅、血块较多的人，但量多者慎用。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"熬夜", "通宵"},
		Answer:   "熬夜会紊乱下丘脑-垂体-卵巢轴，直接导致月经失调或闭经。这几天请务必督促她11点前睡觉。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"出差", "旅行", "旅游"},
		Answer:   "环境改变会导致周期突然提前或推迟。备好止痛药和足够的卫生用品，保持心态轻松。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"洗头"},
		Answer:   "洗完立刻吹干！冷气通过头皮侵入会引起寒凝血瘀，导致经量变少或偏头痛。",
		Category: CategoryLifestyle,
	},
	{
		Keywords: []string{"自闭", "不想说话"},
		Answer:   "这是正常的自我保护机制。给她空间，默默准备好零食和温水，她能感受到你的支持。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"想抱抱", "贴贴"},
		Answer:   "皮肤接触能产生催产素，天然的止痛剂。抱抱她、摸摸头，是最好的药方。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"夸她", "赞美"},
		Answer:   "经期容易容貌焦虑，多夸夸她的坚强和可爱，这比什么补品都管用。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"安全期", "不戴", "避孕"},
		Answer:   "经期并非绝对安全！精子存活时间长且排卵可能提前。请务必坚持科学避孕，保护她的身体。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"痛经假", "休息"},
		Answer:   "如果她痛得起不来，支持她请假休息。身体是第一位的，工作永远做不完。",
		Category: CategoryEmotion,
	},
	{
		Keywords: []string{"腰疼", "撑腰"},
		Answer:   "不要捶腰！捶打会导致盆腔充血加剧。建议侧卧并在两腿间垫个枕头来缓解。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"尿频", "尿急"},
		Answer:   "子宫充血可能压迫膀胱，导致尿频。只要没有尿痛通常是正常的，多喝温水不要憋尿。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"白带", "分泌物"},
		Answer:   "经前白带增多是激素升高的表现。只要无异味无瘙痒，就是身体在清理门户，不必紧张。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"皮肤过敏", "发红"},
		Answer:   "经期免疫系统敏感。暂时停用高活性护肤品，改用纯补水的产品，减少过敏几率。",
		Category: CategoryMedical,
	},
	{
		Keywords: []string{"玫瑰花茶"},
		Answer:   "疏肝理气，非常适合经前焦虑和胸胀的人。闻着花香心情也会变好。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"益母草"},
		Answer:   "活血调经佳品，适合经量少、色暗者。如果平时经量就多，千万不要乱喝哦。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"维生素C", "维C"},
		Answer:   "能增强血管壁弹性，防止经期牙龈或皮肤黏膜异常出血。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"蛋白质", "鸡蛋", "牛奶"},
		Answer:   "经期修复内膜需要大量优质蛋白，建议每天保证一个鸡蛋和一杯温牛奶。",
		Category: CategoryDiet,
	},
	{
		Keywords: []string{"减肥药", "排毒"},
		Answer:   "经期严禁服用减肥药！会严重干扰内分泌，甚至导致卵巢早衰。健康第一。",
		Category: CategoryMedical,
	},
}
