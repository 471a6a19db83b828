package domain

import "errors"

var ErrLanguageNotSupported = errors.New("language not supported")

// Language is a short ISO-style code chosen by each participant at join
// time and fixed for the lifetime of the room.
type Language string

// LanguageInfo is the public description of one supported language.
type LanguageInfo struct {
	Code Language `json:"code"`
	Name string   `json:"name"`
	Flag string   `json:"flag"`
}

// supportedLanguages is the full any-to-any set. Provider-specific code
// variants live in the maps below.
var supportedLanguages = []LanguageInfo{
	{"en", "English", "🇺🇸"},
	{"zh", "Chinese (Simplified)", "🇨🇳"},
	{"es", "Spanish", "🇪🇸"},
	{"fr", "French", "🇫🇷"},
	{"fa", "Persian (Farsi)", "🇮🇷"},
	{"ru", "Russian", "🇷🇺"},
	{"de", "German", "🇩🇪"},
	{"ja", "Japanese", "🇯🇵"},
	{"ko", "Korean", "🇰🇷"},
	{"pt", "Portuguese", "🇵🇹"},
	{"it", "Italian", "🇮🇹"},
	{"ar", "Arabic", "🇸🇦"},
	{"hi", "Hindi", "🇮🇳"},
	{"tr", "Turkish", "🇹🇷"},
	{"nl", "Dutch", "🇳🇱"},
	{"pl", "Polish", "🇵🇱"},
	{"vi", "Vietnamese", "🇻🇳"},
	{"th", "Thai", "🇹🇭"},
}

// ttsCodes maps a Language to the code the speech synthesizer expects.
var ttsCodes = map[Language]string{
	"en": "en", "zh": "zh-CN", "es": "es", "fr": "fr", "fa": "fa",
	"ru": "ru", "de": "de", "ja": "ja", "ko": "ko", "pt": "pt",
	"it": "it", "ar": "ar", "hi": "hi", "tr": "tr", "nl": "nl",
	"pl": "pl", "vi": "vi", "th": "th",
}

func (l Language) Supported() bool {
	_, ok := ttsCodes[l]
	return ok
}

// TTSCode returns the synthesizer code variant, falling back to English
// for codes outside the map.
func (l Language) TTSCode() string {
	if code, ok := ttsCodes[l]; ok {
		return code
	}
	return "en"
}

// SpeechCode returns the code passed to the speech recognizer. The
// recognizer accepts the plain codes unchanged.
func (l Language) SpeechCode() string { return string(l) }

func SupportedLanguages() []LanguageInfo {
	out := make([]LanguageInfo, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

func LanguageByCode(code Language) (LanguageInfo, bool) {
	for _, info := range supportedLanguages {
		if info.Code == code {
			return info, true
		}
	}
	return LanguageInfo{}, false
}
