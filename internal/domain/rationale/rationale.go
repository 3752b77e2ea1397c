// Package rationale explains a selected outfit in plain text.
package rationale

import (
	"fmt"
	"strings"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/palette"
	"github.com/okian/stylist/internal/domain/quiz"
)

// Message templates.
const (
	WarmMessage      = "✅ Тёплые тона идеально подходят вашему цветотипу."
	CoolMessage      = "✅ Холодные тона гармонируют с вашим цветотипом."
	UniversalMessage = "✅ Универсальная палитра — отлично для экспериментов."
	BalancedMessage  = "💡 Цвета сбалансированы под ваш цветотип."

	PearAdvice      = "Для фигуры «груша» выбран светлый верх и тёмный низ."
	HourglassAdvice = "Подчёркнута талия — акцент на гармонии пропорций."
)

// Explain builds the rationale for outfit under answers.
// Colour and figure notes need at least two items; the style line is always present.
// Pending colours are read as palette.DefaultColor.
func Explain(outfit model.Outfit, answers quiz.Answers) string {
	p := quiz.PreferencesFrom(answers)
	var parts []string

	if len(outfit.Items) >= 2 {
		warm1 := palette.IsWarm(palette.Resolve(outfit.Items[0].Color))
		warm2 := palette.IsWarm(palette.Resolve(outfit.Items[1].Color))

		switch {
		case p.WantsWarm && warm1 && warm2:
			parts = append(parts, WarmMessage)
		case p.WantsCool && !warm1 && !warm2:
			parts = append(parts, CoolMessage)
		case !p.WantsWarm && !p.WantsCool:
			parts = append(parts, UniversalMessage)
		default:
			parts = append(parts, BalancedMessage)
		}

		switch p.BodyType {
		case quiz.BodyPear:
			parts = append(parts, PearAdvice)
		case quiz.BodyHourglass:
			parts = append(parts, HourglassAdvice)
		}
	}

	parts = append(parts, fmt.Sprintf("Стиль: %s.", p.Style))
	return strings.Join(parts, " ")
}
