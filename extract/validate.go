package extract

import (
	"regexp"
	"strings"
	"time"
)

// ValidABN reports whether the digit string passes the standard 11-digit
// weighted checksum: subtract one from the leading digit, apply the weights,
// and the weighted sum must divide by 89.
func ValidABN(s string) bool {
	digits := digitsOnly(s)
	if len(digits) != 11 {
		return false
	}
	weights := [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}
	sum := 0
	for i, c := range digits {
		d := int(c - '0')
		if i == 0 {
			d--
		}
		sum += d * weights[i]
	}
	return sum%89 == 0
}

// ValidACN reports whether the digit string passes the standard 9-digit
// modulo-10 complement check over the first eight digits.
func ValidACN(s string) bool {
	digits := digitsOnly(s)
	if len(digits) != 9 {
		return false
	}
	weights := [8]int{8, 7, 6, 5, 4, 3, 2, 1}
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(digits[i]-'0') * weights[i]
	}
	complement := (10 - sum%10) % 10
	return complement == int(digits[8]-'0')
}

// ValidPostcode reports whether the value is exactly four digits.
func ValidPostcode(s string) bool {
	digits := digitsOnly(s)
	return len(digits) == 4 && digits == strings.TrimSpace(s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "2/1/2006"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "2-1-2006"},
	{regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`), "2.1.2006"},
}

// NormalizeDate parses a handful of common date formats (day first, the
// Australian convention) and renders them as ISO 8601. The boolean reports
// whether the value parsed as a real calendar date.
func NormalizeDate(s string) (string, bool) {
	v := strings.TrimSpace(s)
	for _, p := range datePatterns {
		if !p.re.MatchString(v) {
			continue
		}
		t, err := time.Parse(p.layout, v)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02"), true
	}
	return v, false
}

// FormatDigits renders a digit string in display grouping, e.g. an ABN as
// "NN NNN NNN NNN". Comparison always happens on the stripped form.
func FormatDigits(s string, groups ...int) string {
	digits := digitsOnly(s)
	parts := make([]string, 0, len(groups))
	pos := 0
	for _, g := range groups {
		if pos+g > len(digits) {
			break
		}
		parts = append(parts, digits[pos:pos+g])
		pos += g
	}
	if pos != len(digits) {
		return digits
	}
	return strings.Join(parts, " ")
}
