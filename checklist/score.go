package checklist

import (
	"math"

	"github.com/rlombardo/audit-king/model"
)

// Score derives the percentage score of an answer sequence, or nil when no
// row contributes to the denominator.
//
// Only yes/no and quality rows are scorable; select and free-text rows are
// ignored. A yes/no row weighs 1 point: "yes" earns it, "n/a" withdraws the
// row from the denominator entirely. A quality row weighs 2 points: good=2,
// fair=1, poor=0. An unanswered scorable row keeps its weight in the
// denominator and earns nothing, so a blank inspection scores like a
// uniformly failed one.
func Score(items []model.AnswerItem) *int {
	var num, den int
	for _, item := range items {
		switch item.QuestionType {
		case model.TypeYesNo:
			if item.ChoiceKey != nil && *item.ChoiceKey == model.ChoiceNA {
				continue
			}
			den++
			if item.ChoiceKey != nil && *item.ChoiceKey == model.ChoiceYes {
				num++
			}
		case model.TypeQuality:
			den += 2
			if item.ChoiceKey == nil {
				continue
			}
			switch *item.ChoiceKey {
			case model.ChoiceGood:
				num += 2
			case model.ChoiceFair:
				num++
			}
		}
	}

	if den == 0 {
		return nil
	}
	score := int(math.Round(100 * float64(num) / float64(den)))
	return &score
}
