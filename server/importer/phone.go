package importer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// CountryPlan carries the numbering-plan constants used to repair domestic
// phone numbers. The defaults cover Argentina, where WhatsApp expects the
// "9" mobile indicator between country code and area code.
type CountryPlan struct {
	Code         string // country calling code, digits only
	MobilePrefix string // digit(s) WhatsApp expects right after the country code
	TrunkPrefix  string // domestic trunk prefix to strip, usually "0"
}

func DefaultCountryPlan() CountryPlan {
	return CountryPlan{Code: "54", MobilePrefix: "9", TrunkPrefix: "0"}
}

var e164Pattern = regexp.MustCompile(`^\+[0-9]{8,15}$`)

// NormalizePhone canonicalizes a raw phone value into E.164. The repair
// chain favors recovering plausible numbers over rejecting ambiguous input;
// a value that cannot be repaired reports ok=false, it never panics.
func (cp CountryPlan) NormalizePhone(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	number := keepDigits(trimmed)

	// Numbers from other countries that already parse as valid E.164 pass
	// through untouched; the heuristics below only know the configured plan.
	if strings.HasPrefix(trimmed, "+") && !strings.HasPrefix(number, "+"+cp.Code) {
		if parsed, err := phonenumbers.Parse(trimmed, ""); err == nil && phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164), true
		}
	}

	if strings.HasPrefix(number, "00") {
		number = "+" + number[2:]
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}

	if !strings.HasPrefix(number, "+"+cp.Code) {
		// Assume domestic numbering: strip the trunk prefix and prepend the
		// country code plus mobile indicator.
		rest := number[1:]
		if cp.TrunkPrefix != "" {
			rest = strings.TrimPrefix(rest, cp.TrunkPrefix)
		}
		number = "+" + cp.Code + cp.MobilePrefix + rest
	} else if cp.MobilePrefix != "" && !strings.HasPrefix(number, "+"+cp.Code+cp.MobilePrefix) {
		number = "+" + cp.Code + cp.MobilePrefix + number[len(cp.Code)+1:]
	}

	if !e164Pattern.MatchString(number) {
		return "", false
	}
	return number, true
}

// keepDigits drops every rune that is not a digit, keeping a leading "+".
func keepDigits(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteByte('+')
		}
	}
	return b.String()
}
