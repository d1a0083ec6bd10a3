package tts

// EmotionParams is a named bundle of synthesis-control parameters applied
// uniformly to one utterance.
type EmotionParams struct {
	Temperature       float64 `json:"temperature"`
	Speed             float64 `json:"speed"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	LengthPenalty     float64 `json:"length_penalty"`
}

// emotionPresets is the fixed preset table. Values mirror the tuning of the
// XTTS synthesis backend.
var emotionPresets = map[string]EmotionParams{
	"neutral": {
		Temperature:       0.75,
		Speed:             1.0,
		TopP:              0.8,
		RepetitionPenalty: 2.0,
		LengthPenalty:     1.0,
	},
	"excited": {
		Temperature:       0.85,
		Speed:             1.1,
		TopP:              0.8,
		RepetitionPenalty: 2.5,
		LengthPenalty:     0.8,
	},
	"calm": {
		Temperature:       0.6,
		Speed:             0.9,
		TopP:              0.8,
		RepetitionPenalty: 1.5,
		LengthPenalty:     1.2,
	},
}

// EmotionPreset returns the parameter preset for an emotion label. Unknown
// labels fall back to "neutral", so the mapping is total.
func EmotionPreset(name string) EmotionParams {
	if p, ok := emotionPresets[name]; ok {
		return p
	}
	return emotionPresets["neutral"]
}
