package rationale_test

import (
	"testing"

	"github.com/okian/stylist/internal/domain/model"
	"github.com/okian/stylist/internal/domain/quiz"
	"github.com/okian/stylist/internal/domain/rationale"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	warm = "#c04020"
	cool = "#2040c0"
)

func outfit(colors ...string) model.Outfit {
	o := model.Outfit{}
	for _, c := range colors {
		o.Items = append(o.Items, model.Item{Color: c})
	}
	return o
}

func TestExplain(t *testing.T) {
	Convey("Given a warm pear shaped user", t, func() {
		a := quiz.Answers{"Тёплые: беж, олива, терракота", quiz.BodyPear, quiz.StyleBoho}

		Convey("When both leading pieces are warm", func() {
			got := rationale.Explain(outfit(warm, warm, cool), a)
			So(got, ShouldEqual, rationale.WarmMessage+" "+rationale.PearAdvice+" Стиль: Бохо/Романтика.")
		})

		Convey("When the pieces are mixed", func() {
			got := rationale.Explain(outfit(warm, cool), a)
			So(got, ShouldStartWith, rationale.BalancedMessage)
		})

		Convey("When the outfit is a single dress", func() {
			got := rationale.Explain(outfit(warm), a)
			So(got, ShouldEqual, "Стиль: Бохо/Романтика.")
		})
	})

	Convey("Given a cool hourglass user", t, func() {
		a := quiz.Answers{"Холодные: синий, серый", quiz.BodyHourglass, quiz.StyleMinimalism}

		Convey("When both pieces are cool", func() {
			got := rationale.Explain(outfit(cool, "#000"), a)
			So(got, ShouldEqual, rationale.CoolMessage+" "+rationale.HourglassAdvice+" Стиль: Минимализм.")
		})

		Convey("When a pending piece is read as the neutral default", func() {
			got := rationale.Explain(outfit(cool, ""), a)
			So(got, ShouldStartWith, rationale.CoolMessage)
		})
	})

	Convey("Given a user with no colour leaning", t, func() {
		a := quiz.Answers{"Яркие: красный, жёлтый", quiz.BodyApple, quiz.StyleCasual}

		Convey("Then the universal message should be used whatever the colours", func() {
			So(rationale.Explain(outfit(warm, cool), a), ShouldEqual, rationale.UniversalMessage+" Стиль: Casual.")
			So(rationale.Explain(outfit(cool, cool), a), ShouldStartWith, rationale.UniversalMessage)
		})
	})
}
