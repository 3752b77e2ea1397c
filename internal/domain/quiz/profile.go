package quiz

import (
	"fmt"
	"strings"
)

// Profile is the summary shown once the quiz is finished.
type Profile struct {
	ColorType string `json:"color_type"`
	BodyNote  string `json:"body_note,omitempty"`
	Style     string `json:"style"`
	Text      string `json:"text"`
}

// Summarize builds the post-quiz profile. Missing answers read as "".
func Summarize(a Answers) Profile {
	p := PreferencesFrom(a)

	var colorType string
	switch {
	case p.WantsWarm:
		colorType = "Тёплая осень"
	case p.WantsCool:
		colorType = "Холодная зима"
	default:
		colorType = "Универсальный"
	}

	var body string
	switch p.BodyType {
	case BodyPear:
		body = "Ваша фигура — груша: подчеркните талию."
	case BodyHourglass:
		body = "У вас песочные часы — подчёркивайте гармонию!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ваш цветотип: %s. ", colorType)
	if body != "" {
		b.WriteString(body)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "Ваш стиль: %s. ", p.Style)
	b.WriteString("Теперь вы можете составлять луки, которые подчёркивают вашу индивидуальность — без лишних покупок.")

	return Profile{
		ColorType: colorType,
		BodyNote:  body,
		Style:     p.Style,
		Text:      b.String(),
	}
}
