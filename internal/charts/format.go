package charts

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"dotproduct/internal/core"
)

// Currency formats a dollar amount with cents, e.g. "$1,234.56" or "-$3.10".
func Currency(amount float64) string {
	return signed(amount, "#,###.##")
}

// WholeCurrency formats a dollar amount rounded to whole dollars, e.g. "$1,235".
func WholeCurrency(amount float64) string {
	return signed(amount, "#,###.")
}

// Money formats an exact amount with cents.
func Money(m core.Money) string {
	return Currency(m.Float())
}

func signed(amount float64, format string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$" + humanize.FormatFloat(format, amount)
}

// compactSuffixes maps SI prefixes to the short-scale suffixes used on axes.
var compactSuffixes = map[string]string{
	"":  "",
	"k": "K",
	"M": "M",
	"G": "B",
	"T": "T",
}

var compactNext = map[string]string{"": "K", "K": "M", "M": "B", "B": "T"}

// Compact formats an axis value in short currency notation with at most one
// fraction digit: "$950", "$1.2K", "-$3.4M".
func Compact(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	value, suffix := amount, ""
	if amount >= 1000 {
		var prefix string
		value, prefix = humanize.ComputeSI(amount)
		s, ok := compactSuffixes[prefix]
		if !ok {
			// Beyond trillions the value stays in T.
			value, s = amount/1e12, "T"
		}
		suffix = s
	}

	rounded := math.Round(value*10) / 10
	if rounded >= 1000 {
		if next, ok := compactNext[suffix]; ok {
			rounded = math.Round(rounded/1000*10) / 10
			suffix = next
		}
	}
	if rounded == 0 {
		sign = ""
	}
	return sign + "$" + trimZero(humanize.FormatFloat("#,###.#", rounded)) + suffix
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Percent formats a 0..1 ratio as a whole percentage.
func Percent(ratio float64) string {
	return strconv.Itoa(int(math.Round(ratio*100))) + "%"
}
