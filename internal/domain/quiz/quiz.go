// Package quiz holds the fixed style questionnaire and turns answers into preferences.
//
// Scoring rules key off the option labels below: colour preference by substring,
// body type and style by equality. Changing a label changes scoring.
package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Question indexes.
const (
	QuestionColor = iota
	QuestionBody
	QuestionStyle

	// Count is the number of answers selection requires.
	Count
)

// Label fragments and values the scorers match against.
const (
	WarmMarker = "Тёплые"
	CoolMarker = "Холодные"

	BodyHourglass = "Песочные часы"
	BodyPear      = "Груша"
	BodyApple     = "Яблоко"
	BodyRectangle = "Прямоугольник"

	StyleMinimalism = "Минимализм"
	StyleCasual     = "Casual"
	StyleBoho       = "Бохо/Романтика"
	StyleClassic    = "Классика"
)

// Sentinel kinds for quiz errors.
var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownAnswer   = errors.New("answer is not one of the question options")
	ErrOutOfOrder      = errors.New("previous questions must be answered first")
)

// Question is one quiz step.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

var questions = [Count]Question{
	{
		Prompt: "Какие цвета вы носите чаще всего?",
		Options: []string{
			"Тёплые: беж, олива, терракота",
			"Холодные: синий, серый",
			"Яркие: красный, жёлтый",
			"Нейтральные: чёрный, белый",
		},
	},
	{
		Prompt:  "Какой у вас тип фигуры?",
		Options: []string{BodyHourglass, BodyPear, BodyApple, BodyRectangle},
	},
	{
		Prompt:  "Какие образы вас вдохновляют?",
		Options: []string{StyleMinimalism, StyleCasual, StyleBoho, StyleClassic},
	},
}

// Questions returns a copy of the questionnaire.
func Questions() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = Question{Prompt: q.Prompt, Options: append([]string(nil), q.Options...)}
	}
	return out
}

// Answers is the ordered list of recorded answers.
type Answers []string

// Complete reports whether exactly Count answers are recorded.
func (a Answers) Complete() bool {
	return len(a) == Count
}

// Record returns a copy of a with the answer to question idx set.
// Question idx may only be answered once questions 0..idx-1 are; answers to
// later questions survive a re-answer. answer must be one of the question's options.
func (a Answers) Record(idx int, answer string) (Answers, error) {
	if idx < 0 || idx >= Count {
		return nil, fmt.Errorf("question %d: %w", idx, ErrUnknownQuestion)
	}
	if idx > len(a) {
		return nil, fmt.Errorf("question %d: %w", idx, ErrOutOfOrder)
	}
	answer = strings.TrimSpace(answer)
	if !isOption(idx, answer) {
		return nil, fmt.Errorf("question %d, %q: %w", idx, answer, ErrUnknownAnswer)
	}
	out := append(Answers(nil), a...)
	if idx == len(out) {
		return append(out, answer), nil
	}
	out[idx] = answer
	return out, nil
}

func isOption(idx int, answer string) bool {
	for _, opt := range questions[idx].Options {
		if opt == answer {
			return true
		}
	}
	return false
}

// Preferences is the scoring view of a completed quiz.
type Preferences struct {
	WantsWarm bool
	WantsCool bool
	BodyType  string
	Style     string
}

// PreferencesFrom derives preferences from answers. Missing answers read as "".
func PreferencesFrom(a Answers) Preferences {
	color, body, style := a.at(QuestionColor), a.at(QuestionBody), a.at(QuestionStyle)
	return Preferences{
		WantsWarm: strings.Contains(color, WarmMarker),
		WantsCool: strings.Contains(color, CoolMarker),
		BodyType:  body,
		Style:     style,
	}
}

func (a Answers) at(i int) string {
	if i < len(a) {
		return a[i]
	}
	return ""
}
