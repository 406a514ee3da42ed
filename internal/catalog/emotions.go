// Package catalog holds the read-only reference data used by the RULER flow:
// the mood-meter emotions, psychological needs, regulation strategies,
// body-scan vocabulary and the post-regulation mood options.
//
// Everything here is loaded once at startup and never mutated.
package catalog

import "fmt"

// Quadrant is one of the four regions of the energy/pleasantness grid.
type Quadrant string

const (
	// QuadrantRed is high energy, unpleasant.
	QuadrantRed Quadrant = "red"
	// QuadrantYellow is high energy, pleasant.
	QuadrantYellow Quadrant = "yellow"
	// QuadrantBlue is low energy, unpleasant.
	QuadrantBlue Quadrant = "blue"
	// QuadrantGreen is low energy, pleasant.
	QuadrantGreen Quadrant = "green"
)

// Quadrants lists every quadrant in mood-meter order.
var Quadrants = []Quadrant{QuadrantRed, QuadrantYellow, QuadrantBlue, QuadrantGreen}

// Valid reports whether q is a known quadrant.
func (q Quadrant) Valid() bool {
	switch q {
	case QuadrantRed, QuadrantYellow, QuadrantBlue, QuadrantGreen:
		return true
	}
	return false
}

// ParseQuadrant converts a string into a Quadrant.
func ParseQuadrant(s string) (Quadrant, error) {
	q := Quadrant(s)
	if !q.Valid() {
		return "", fmt.Errorf("unknown quadrant %q", s)
	}
	return q, nil
}

// Emotion is an immutable mood-meter entry.
type Emotion struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Quadrant     Quadrant `json:"quadrant"`
	Energy       int      `json:"energy"`
	Pleasantness int      `json:"pleasantness"`
}

// EmotionCatalogSize is the number of emotions in the reference catalog.
// Granularity is measured against it.
const EmotionCatalogSize = 100

var emotions = []Emotion{
	// red: high energy, low pleasantness
	{"enraged", "憤怒的", QuadrantRed, 5, 1},
	{"panicked", "驚惶失措的", QuadrantRed, 5, 2},
	{"stressed", "壓力很大的", QuadrantRed, 5, 3},
	{"anxious_unrest", "緊張不安的", QuadrantRed, 5, 4},
	{"shocked", "震驚的", QuadrantRed, 5, 5},
	{"furious", "暴怒的", QuadrantRed, 4, 1},
	{"angry_steaming", "氣沖沖的", QuadrantRed, 4, 2},
	{"frustrated", "沮喪的", QuadrantRed, 4, 3},
	{"tense_nervous", "神經緊繃的", QuadrantRed, 4, 4},
	{"stunned", "錯愕的", QuadrantRed, 4, 5},
	{"livid", "火冒三丈的", QuadrantRed, 3, 1},
	{"startled", "受到驚嚇的", QuadrantRed, 3, 2},
	{"angry", "生氣的", QuadrantRed, 3, 3},
	{"nervous", "緊張的", QuadrantRed, 3, 4},
	{"restless", "坐立難安的", QuadrantRed, 3, 5},
	{"anxious", "焦慮的", QuadrantRed, 2, 1},
	{"apprehensive", "憂慮不安的", QuadrantRed, 2, 2},
	{"worried", "擔心的", QuadrantRed, 2, 3},
	{"irritated", "被激怒的", QuadrantRed, 2, 4},
	{"annoyed", "被惹惱的", QuadrantRed, 2, 5},
	{"repulsed", "反感的", QuadrantRed, 1, 1},
	{"troubled", "困擾的", QuadrantRed, 1, 2},
	{"concerned", "在意的", QuadrantRed, 1, 3},
	{"uneasy", "忐忑不安的", QuadrantRed, 1, 4},
	{"displeased", "不太高興的", QuadrantRed, 1, 5},

	// yellow: high energy, high pleasantness
	{"surprised_joy", "驚喜的", QuadrantYellow, 5, 1},
	{"uplifted", "振奮的", QuadrantYellow, 5, 2},
	{"celebratory", "歡慶的", QuadrantYellow, 5, 3},
	{"elated", "心花怒放的", QuadrantYellow, 5, 4},
	{"ecstatic", "欣喜若狂的", QuadrantYellow, 5, 5},
	{"hyper", "亢奮的", QuadrantYellow, 4, 1},
	{"pleasant_joy", "愉悅的", QuadrantYellow, 4, 2},
	{"motivated", "有動力的", QuadrantYellow, 4, 3},
	{"inspired", "受到啟發的", QuadrantYellow, 4, 4},
	{"joyful_excited", "興高采烈的", QuadrantYellow, 4, 5},
	{"energetic", "精力充沛的", QuadrantYellow, 3, 1},
	{"lively", "生氣勃勃的", QuadrantYellow, 3, 2},
	{"excited", "興奮的", QuadrantYellow, 3, 3},
	{"optimistic", "樂觀的", QuadrantYellow, 3, 4},
	{"passionate", "熱情洋溢的", QuadrantYellow, 3, 5},
	{"happy", "開心的", QuadrantYellow, 2, 1},
	{"focused", "集中的", QuadrantYellow, 2, 2},
	{"joyful", "快樂的", QuadrantYellow, 2, 3},
	{"proud", "驕傲的", QuadrantYellow, 2, 4},
	{"thrilled", "興奮激動的", QuadrantYellow, 2, 5},
	{"delighted", "令人愉快的", QuadrantYellow, 1, 1},
	{"glad", "欣喜的", QuadrantYellow, 1, 2},
	{"hopeful", "有希望的", QuadrantYellow, 1, 3},
	{"playful", "好玩的", QuadrantYellow, 1, 4},
	{"blissful", "幸福的", QuadrantYellow, 1, 5},

	// blue: low energy, low pleasantness
	{"disgusted", "厭惡的", QuadrantBlue, 5, 1},
	{"lifeless", "死氣沈沈的", QuadrantBlue, 5, 2},
	{"disappointed", "失望的", QuadrantBlue, 5, 3},
	{"low", "低落的", QuadrantBlue, 5, 4},
	{"unmotivated", "提不起勁的", QuadrantBlue, 5, 5},
	{"pessimistic", "悲觀的", QuadrantBlue, 4, 1},
	{"heavy_hearted", "鬱鬱寡歡的", QuadrantBlue, 4, 2},
	{"discouraged", "洩氣的", QuadrantBlue, 4, 3},
	{"sad", "難過的", QuadrantBlue, 4, 4},
	{"bored", "無聊的", QuadrantBlue, 4, 5},
	{"alienated", "疏離的", QuadrantBlue, 3, 1},
	{"miserable", "悲慘的", QuadrantBlue, 3, 2},
	{"lonely", "孤單的", QuadrantBlue, 3, 3},
	{"disheartened", "心灰意冷的", QuadrantBlue, 3, 4},
	{"tired_low", "疲累的", QuadrantBlue, 3, 5},
	{"despondent", "消沈的", QuadrantBlue, 2, 1},
	{"depressed", "抑鬱的", QuadrantBlue, 2, 2},
	{"gloomy", "悶悶不樂的", QuadrantBlue, 2, 3},
	{"exhausted", "精疲力竭的", QuadrantBlue, 2, 4},
	{"fatigued", "疲勞的", QuadrantBlue, 2, 5},
	{"hopeless", "絕望的", QuadrantBlue, 1, 1},
	{"helpless", "無望的", QuadrantBlue, 1, 2},
	{"desolate", "孤寂的", QuadrantBlue, 1, 3},
	{"spent", "疲憊不堪的", QuadrantBlue, 1, 4},
	{"drained", "被榨乾的", QuadrantBlue, 1, 5},

	// green: low energy, high pleasantness
	{"at_ease", "自在的", QuadrantGreen, 5, 1},
	{"easygoing", "隨和的", QuadrantGreen, 5, 2},
	{"content", "知足的", QuadrantGreen, 5, 3},
	{"loving", "充滿愛的", QuadrantGreen, 5, 4},
	{"satisfied_full", "心滿意足的", QuadrantGreen, 5, 5},
	{"calm", "平靜的", QuadrantGreen, 4, 1},
	{"secure", "安全的", QuadrantGreen, 4, 2},
	{"satisfied", "滿意的", QuadrantGreen, 4, 3},
	{"grateful", "滿懷感謝的", QuadrantGreen, 4, 4},
	{"touched", "感動的", QuadrantGreen, 4, 5},
	{"relaxed", "放鬆的", QuadrantGreen, 3, 1},
	{"cool_headed", "冷靜的", QuadrantGreen, 3, 2},
	{"tranquil", "寧靜的", QuadrantGreen, 3, 3},
	{"blessed", "有福氣的", QuadrantGreen, 3, 4},
	{"balanced", "平衡的", QuadrantGreen, 3, 5},
	{"mellow", "柔和的", QuadrantGreen, 2, 1},
	{"thoughtful", "周到的", QuadrantGreen, 2, 2},
	{"peaceful", "平和的", QuadrantGreen, 2, 3},
	{"comfortable", "舒服的", QuadrantGreen, 2, 4},
	{"carefree", "無憂無慮的", QuadrantGreen, 2, 5},
	{"sleepy", "昏昏欲睡的", QuadrantGreen, 1, 1},
	{"complacent", "自鳴得意的", QuadrantGreen, 1, 2},
	{"serene", "平靜的", QuadrantGreen, 1, 3},
	{"cozy", "舒適的", QuadrantGreen, 1, 4},
	{"placid", "安詳的", QuadrantGreen, 1, 5},
}

var emotionsByID = func() map[string]Emotion {
	m := make(map[string]Emotion, len(emotions))
	for _, e := range emotions {
		m[e.ID] = e
	}
	return m
}()

// Emotions returns a copy of the full emotion catalog.
func Emotions() []Emotion {
	out := make([]Emotion, len(emotions))
	copy(out, emotions)
	return out
}

// EmotionByID looks up a catalog emotion.
func EmotionByID(id string) (Emotion, bool) {
	e, ok := emotionsByID[id]
	return e, ok
}

// EmotionsIn returns the emotions belonging to any of the given quadrants,
// in catalog order. An empty quadrant list yields no emotions.
func EmotionsIn(quadrants ...Quadrant) []Emotion {
	want := make(map[Quadrant]bool, len(quadrants))
	for _, q := range quadrants {
		want[q] = true
	}
	var out []Emotion
	for _, e := range emotions {
		if want[e.Quadrant] {
			out = append(out, e)
		}
	}
	return out
}
