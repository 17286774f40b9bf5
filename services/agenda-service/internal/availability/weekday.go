package availability

import (
	"strings"
	"unicode"

	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dayNames = map[string]model.Weekday{
	"domingo":   0,
	"lunes":     1,
	"martes":    2,
	"miercoles": 3,
	"jueves":    4,
	"viernes":   5,
	"sabado":    6,
}

// ParseWeekday accepts a Spanish day name regardless of case or accents
// ("Miércoles", "SABADO").
func ParseWeekday(name string) (model.Weekday, bool) {
	d, ok := dayNames[foldName(name)]
	return d, ok
}

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
