package catalog

// Need is a psychological need a user can attach to the understanding step.
type Need struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Desc  string `json:"desc"`
}

var needs = []Need{
	{"respect", "尊重與認可", "🤝", "渴望被看見、被聽見或被重視"},
	{"safety", "安全與穩定", "🛡️", "追求生理或心理上的安全感與預測性"},
	{"connection", "連結與歸屬", "❤️", "需要友誼、愛或群體的歸屬感"},
	{"autonomy", "自主與自由", "🕊️", "渴望自己做決定、掌控生活節奏"},
	{"meaning", "意義與價值", "✨", "希望感到自己有貢獻或生命有意義"},
	{"rest", "休息與放鬆", "🛌", "需要空間來恢復體力或精神能量"},
	{"growth", "挑戰與成長", "🌱", "渴望學習新事物或突破自我"},
}

// Needs returns a copy of the psychological needs list.
func Needs() []Need {
	out := make([]Need, len(needs))
	copy(out, needs)
	return out
}

// Strategy is a regulation technique suggested for a quadrant.
type Strategy struct {
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

var strategiesByQuadrant = map[Quadrant][]Strategy{
	QuadrantRed: {
		{"🌬️", "深呼吸", "吸氣4秒、屏息4秒、吐氣6秒"},
		{"🚶", "短暫散步", "離開當前環境，活動一下身體"},
		{"🎵", "平靜音樂", "聆聽柔和的旋律來緩解張力"},
		{"✍️", "紙上書寫", "寫下煩惱後將紙張揉碎"},
		{"💧", "冰水洗臉", "利用低溫觸覺快速啟動副交感神經"},
		{"🧘", "肌肉放鬆", "從腳趾到肩膀依次緊繃後徹底釋放"},
	},
	QuadrantYellow: {
		{"📝", "感恩記錄", "寫下三件此刻感到美好的事"},
		{"🤝", "與人分享", "向好友傳遞你這份好心情"},
		{"🎯", "規劃下一步", "趁著高動力設定一個小目標"},
		{"🕺", "小小慶祝", "獎勵自己一個喜歡的小驚喜"},
		{"✨", "讚美他人", "發一則訊息真誠地感謝某人的存在"},
		{"🧩", "心流活動", "投入一件純粹感興趣的創作或小遊戲"},
	},
	QuadrantBlue: {
		{"☀️", "沐浴陽光", "到窗邊或戶外感受溫暖光影"},
		{"🍵", "溫暖飲品", "泡一杯熱茶或咖啡安撫心靈"},
		{"🚶", "低度運動", "簡單的伸展或散步恢復活力"},
		{"📻", "聆聽內容", "聽一段溫暖的 Podcast 或故事"},
		{"🧹", "整理空間", "簡單整理書桌或床鋪，找回掌控感"},
		{"🕯️", "香味療癒", "點燃香氛或感受熟悉的乾淨氣味"},
	},
	QuadrantGreen: {
		{"🧘", "靜坐冥想", "花五分鐘專注於當下的呼吸"},
		{"📖", "靜心閱讀", "翻閱幾頁喜愛的文學或詩集"},
		{"🌿", "綠意環繞", "觀察身邊的植物或去公園走走"},
		{"🎨", "隨意塗鴉", "不帶目的地記錄線條與色彩"},
		{"🍎", "正念進食", "細細品味一口水果的酸甜與質地"},
		{"📵", "數位排毒", "放下手機一刻鐘，只與現實世界共處"},
	},
}

// StrategyCatalogSize is the total number of regulation strategies across
// all quadrants. Strategy diversity is measured against it.
const StrategyCatalogSize = 24

var strategyTitles = func() map[string]bool {
	m := make(map[string]bool, StrategyCatalogSize)
	for _, list := range strategiesByQuadrant {
		for _, s := range list {
			m[s.Title] = true
		}
	}
	return m
}()

// StrategiesFor returns the strategies suggested for a quadrant.
func StrategiesFor(q Quadrant) []Strategy {
	list := strategiesByQuadrant[q]
	out := make([]Strategy, len(list))
	copy(out, list)
	return out
}

// IsStrategy reports whether title names a catalog strategy.
func IsStrategy(title string) bool {
	return strategyTitles[title]
}

// BodyLocation is a region offered by the body scan.
type BodyLocation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Sensation is a bodily sensation offered by the body scan.
type Sensation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var bodyLocations = []BodyLocation{
	{"head", "頭部"},
	{"throat", "喉嚨"},
	{"chest", "胸口"},
	{"stomach", "腹部"},
	{"shoulders", "肩膀"},
	{"whole", "全身"},
}

var sensationsByQuadrant = map[Quadrant][]Sensation{
	QuadrantRed:    {{"tension", "緊繃"}, {"heat", "灼熱"}, {"heartbeat", "心跳加速"}, {"breathless", "屏息"}},
	QuadrantYellow: {{"light", "輕盈"}, {"warm", "溫暖"}, {"energy", "充滿能量"}, {"vibrate", "震動"}},
	QuadrantBlue:   {{"heavy", "沉重"}, {"cold", "冰冷"}, {"hollow", "空洞"}, {"limp", "疲軟"}, {"throatTight", "喉嚨緊縮"}, {"chestBlocked", "胸口堵塞"}},
	QuadrantGreen:  {{"relaxed", "放鬆"}, {"steady", "平穩"}, {"still", "沉靜"}, {"flowing", "通暢"}},
}

// BodyLocations returns the body-scan regions.
func BodyLocations() []BodyLocation {
	out := make([]BodyLocation, len(bodyLocations))
	copy(out, bodyLocations)
	return out
}

// SensationsFor returns the body-scan sensations offered for a quadrant.
func SensationsFor(q Quadrant) []Sensation {
	list := sensationsByQuadrant[q]
	out := make([]Sensation, len(list))
	copy(out, list)
	return out
}

// Post-regulation mood options recorded at the neuro check.
const (
	MoodMuchLighter  = "感覺輕鬆多了"
	MoodSomewhatCalm = "平靜了一些"
	MoodAboutTheSame = "依然差不多"
	MoodNewThoughts  = "產生了新思緒"
)

// MoodOptions lists the neuro-check answers in display order.
var MoodOptions = []string{MoodMuchLighter, MoodSomewhatCalm, MoodAboutTheSame, MoodNewThoughts}

// IsMoodOption reports whether m is one of the neuro-check answers.
func IsMoodOption(m string) bool {
	for _, o := range MoodOptions {
		if o == m {
			return true
		}
	}
	return false
}
