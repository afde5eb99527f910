// internal/game/card.go
package game

// Color identifies a card color. Wild cards carry ColorWild until they are
// played, at which point their effective color is resolved.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorWild   Color = "wild"
)

// Colors lists the four playable colors, in deck-building order.
var Colors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// Value identifies a card face. Digit cards use their literal string form
// ("0" through "9").
type Value string

const (
	ValueSkip      Value = "skip"
	ValueReverse   Value = "reverse"
	ValueDraw2     Value = "draw2"
	ValueWild      Value = "wild"
	ValueWildDraw4 Value = "wild_draw4"
)

// digitValues are the numeric faces present in every color.
var digitValues = []Value{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// actionValues are the colored action faces, two per color.
var actionValues = []Value{ValueSkip, ValueReverse, ValueDraw2}

// Card is a single Uno card. A card is immutable once created, except that a
// wild card's Color field is overwritten with its effective color when played.
type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

// IsWild reports whether the card can be played on any top card.
func (c Card) IsWild() bool {
	return c.Color == ColorWild
}

// Matches reports whether the card is a legal play on top. A card is legal
// iff it is wild, or its color or value matches the top card.
func (c Card) Matches(top Card) bool {
	return c.IsWild() || c.Color == top.Color || c.Value == top.Value
}

// validChosenColor reports whether col is an acceptable effective color for a
// played wild card.
func validChosenColor(col Color) bool {
	for _, c := range Colors {
		if c == col {
			return true
		}
	}
	return false
}
