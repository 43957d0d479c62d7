package rules

import (
	"strings"

	"pc28/domain/entities"
)

// labelAliases maps the Chinese display labels to canonical labels
var labelAliases = map[string]entities.BetType{
	"大":  entities.BetTypeBig,
	"小":  entities.BetTypeSmall,
	"单":  entities.BetTypeOdd,
	"双":  entities.BetTypeEven,
	"大单": entities.BetTypeBigOdd,
	"大双": entities.BetTypeBigEven,
	"小单": entities.BetTypeSmallOdd,
	"小双": entities.BetTypeSmallEven,
}

// NormalizeLabel resolves a bet content label to its canonical category.
// Both the canonical English labels and the Chinese aliases are accepted.
func NormalizeLabel(content string) (entities.BetType, bool) {
	label := strings.TrimSpace(content)
	if alias, ok := labelAliases[label]; ok {
		return alias, true
	}

	t := entities.BetType(strings.ToLower(label))
	if t == entities.BetTypeMultiple || !t.IsValid() {
		return "", false
	}
	return t, true
}

// Matches reports whether a category label equals the draw's derived category
func Matches(label entities.BetType, c Classification) bool {
	switch label {
	case entities.BetTypeBig, entities.BetTypeSmall:
		return string(label) == string(c.Size)
	case entities.BetTypeOdd, entities.BetTypeEven:
		return string(label) == string(c.Parity)
	case entities.BetTypeBigOdd, entities.BetTypeBigEven, entities.BetTypeSmallOdd, entities.BetTypeSmallEven:
		return string(label) == string(c.Combo)
	default:
		return false
	}
}
