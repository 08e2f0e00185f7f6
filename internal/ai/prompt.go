package ai

import "strings"

// Плейсхолдеры пользовательского промпта.
const (
	PlaceholderText     = "{{text}}"
	PlaceholderLanguage = "{{targetLanguage}}"
)

const defaultInstructions = "You are a translation engine. Translate the user's text to %LANG%. " +
	"Preserve meaning, tone and punctuation. Respond with the translation only, without quotes or comments."

// Language — поддерживаемый язык перевода.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages список языков, которые предлагает форма настроек (GET /languages моста).
var SupportedLanguages = []Language{
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"uk", "Ukrainian"},
	{"pl", "Polish"},
	{"nl", "Dutch"},
	{"tr", "Turkish"},
	{"ar", "Arabic"},
	{"hi", "Hindi"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"zh", "Chinese (Simplified)"},
}

// LanguageName возвращает название языка по коду. Неизвестный код возвращается как есть.
func LanguageName(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	for _, l := range SupportedLanguages {
		if l.Code == c {
			return l.Name
		}
	}
	return strings.TrimSpace(code)
}

// Prompt — пара «системные инструкции + пользовательское сообщение».
type Prompt struct {
	System string
	User   string
}

// RenderPrompt собирает промпт. Пустой customPrompt — стандартные инструкции.
// Промпт с плейсхолдерами становится пользовательским сообщением целиком;
// промпт без плейсхолдеров добавляется к инструкциям, а текст идёт отдельно.
func RenderPrompt(text, targetLanguage, customPrompt string) Prompt {
	lang := LanguageName(targetLanguage)
	system := strings.ReplaceAll(defaultInstructions, "%LANG%", lang)

	custom := strings.TrimSpace(customPrompt)
	switch {
	case custom == "":
		return Prompt{System: system, User: text}
	case strings.Contains(custom, PlaceholderText):
		r := strings.NewReplacer(PlaceholderText, text, PlaceholderLanguage, lang)
		return Prompt{System: system, User: r.Replace(custom)}
	default:
		custom = strings.ReplaceAll(custom, PlaceholderLanguage, lang)
		return Prompt{System: system + "\n" + custom, User: text}
	}
}
