package i18n

// Translator retrieves localized messages for issue codes.
// data provides optional metadata to embed in the message (for example,
// "min" or "pattern").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			return "必須項目です"
		case "too_short":
			return "短すぎます"
		case "too_long":
			return "長すぎます"
		case "too_small":
			return "小さすぎます"
		case "too_big":
			return "大きすぎます"
		case "pattern":
			return "形式が不正です"
		case "invalid_format":
			return "形式が不正です"
		case "uniqueness":
			return "値が重複しています"
		case "business_rule":
			return "条件を満たしていません"
		}
	default: // "en"
		switch code {
		case "required":
			return "this field is required"
		case "too_short":
			return withData("too short", "min", data)
		case "too_long":
			return withData("too long", "max", data)
		case "too_small":
			return withData("too small", "min", data)
		case "too_big":
			return withData("too big", "max", data)
		case "pattern":
			return "does not match the expected pattern"
		case "invalid_format":
			return "invalid format"
		case "uniqueness":
			return "duplicate value"
		case "business_rule":
			return "business rule violated"
		}
	}
	return code
}

func withData(base, key string, data map[string]string) string {
	if v, ok := data[key]; ok {
		return base + " (" + key + " " + v + ")"
	}
	return base
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
