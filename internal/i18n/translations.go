// Package i18n фразы ресепшена на английском и хинди
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	KeyGreeting                 = "greeting"
	KeyAppointmentSuccess       = "appointment_success"
	KeyAppointmentFailed        = "appointment_failed"
	KeyAppointmentConflict      = "appointment_conflict"
	KeyAppointmentNoSuggestions = "appointment_conflict_no_suggestions"
	KeyAppointmentInvalid       = "appointment_invalid"
	KeyProviderBusy             = "provider_busy"
	KeyLanguageSwitch           = "language_switch"
	KeyGoodbye                  = "goodbye"
	KeyTransferring             = "transferring"
	KeyHold                     = "hold"
	KeyAppointmentReminder      = "appointment_reminder"
	KeyCallerNoted              = "caller_noted"
)

const DefaultLanguage = "en"

var translations = map[string]map[string]string{
	"en": {
		KeyGreeting:                 "Hello, this is {school} reception. How may I help you?",
		KeyAppointmentSuccess:       "Your appointment has been scheduled for {time}. It has also been added to the school calendar.",
		KeyAppointmentFailed:        "I apologize, but I could not schedule your appointment. Please try again later.",
		KeyAppointmentConflict:      "The requested time is not available. Here are some alternative times: {suggestions}",
		KeyAppointmentNoSuggestions: "The requested time is not available and no alternatives were found.",
		KeyAppointmentInvalid:       "I am missing some details for the appointment. Could you please repeat them?",
		KeyProviderBusy:             "Another caller is booking with this teacher right now. Please hold on and try again in a moment.",
		KeyLanguageSwitch:           "I will now switch to {language}.",
		KeyGoodbye:                  "Thank you for calling {school}. Have a great day!",
		KeyTransferring:             "I will transfer your call to {department}.",
		KeyHold:                     "Please hold while I process your request.",
		KeyAppointmentReminder:      "This is a reminder for your appointment with {teacher} on {date} at {time}.",
		KeyCallerNoted:              "Thank you, {name}. I have noted your name.",
	},
	"hi": {
		KeyGreeting:                 "नमस्ते, यह {school} रिसेप्शन है। मैं आपकी कैसे सहायता कर सकता/सकती हूं?",
		KeyAppointmentSuccess:       "आपकी मुलाकात {time} के लिए सफलतापूर्वक निर्धारित कर दी गई है।",
		KeyAppointmentFailed:        "मुझे खेद है, लेकिन मैं आपकी मुलाकात निर्धारित नहीं कर पाया/पाई। कृपया बाद में पुनः प्रयास करें।",
		KeyAppointmentConflict:      "अनुरोधित समय उपलब्ध नहीं है। यहाँ कुछ वैकल्पिक समय हैं: {suggestions}",
		KeyAppointmentNoSuggestions: "अनुरोधित समय उपलब्ध नहीं है और कोई विकल्प नहीं मिला।",
		KeyLanguageSwitch:           "मैं अब {language} में बदल रहा/रही हूं।",
		KeyGoodbye:                  "{school} को कॉल करने के लिए धन्यवाद। आपका दिन शुभ हो!",
		KeyTransferring:             "मैं आपका कॉल {department} को ट्रांसफर कर रहा/रही हूं।",
		KeyHold:                     "कृपया प्रतीक्षा करें जब तक मैं आपके अनुरोध को संसाधित करता/करती हूं।",
		KeyAppointmentReminder:      "यह {date} को {time} बजे {teacher} के साथ आपकी मुलाकात की याद दिलाने के लिए है।",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

// Normalize приводит код языка (en-US, hi_IN, HI) к поддерживаемому, по умолчанию en
func Normalize(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if code == "" {
		return DefaultLanguage
	}

	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}

	matched, _, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLanguage
	}

	base, _ := matched.Base()
	if _, ok := translations[base.String()]; !ok {
		return DefaultLanguage
	}
	return base.String()
}

// Supported сообщает, есть ли переводы для языка
func Supported(code string) bool {
	_, ok := translations[code]
	return ok
}

// DisplayName название языка на нём самом: English, हिन्दी
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}

// T возвращает фразу на языке lang с подстановкой {name} из args.
// Нет перевода - берётся английский, нет и его - сам ключ.
func T(key, lang string, args map[string]string) string {
	messages, ok := translations[lang]
	if !ok {
		messages = translations[DefaultLanguage]
	}

	text, ok := messages[key]
	if !ok {
		text, ok = translations[DefaultLanguage][key]
		if !ok {
			text = key
		}
	}

	if len(args) == 0 {
		return text
	}

	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
