// Package refcode pulls masked account numbers and transfer reference
// numbers out of free-text transaction descriptions.
package refcode

import (
	"regexp"
	"strings"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	maskedRun   = regexp.MustCompile(`[Xx]{4,}\d{3,}`)
	mobileSelf  = regexp.MustCompile(`(?i)MOB/SELFFT/[^/]+/(\d{12,16})`)
	selfPhrase  = regexp.MustCompile(`(?i)Self Transfer (?:to|from) (\d{12,16})`)
	wordNumbers = regexp.MustCompile(`\b\d+\b`)
)

// GetNumbers returns the masked account numbers in description, such as
// "XXXXXXXX1234". Whitespace is ignored so that "XXXX XXXX 1234" is found
// too. When nothing masked is present, the account numbers of mobile and
// net-banking self transfers are returned instead. The result is never nil.
func GetNumbers(description string) []string {
	compact := whitespace.ReplaceAllString(description, "")
	out := maskedRun.FindAllString(compact, -1)
	if len(out) > 0 {
		return out
	}

	out = []string{}
	for _, re := range []*regexp.Regexp{mobileSelf, selfPhrase} {
		for _, m := range re.FindAllStringSubmatch(description, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

// NumberSuffixes returns the last n characters of every number at least n
// long whose tail is all digits.
func NumberSuffixes(numbers []string, n int) []string {
	var out []string
	for _, num := range numbers {
		if len(num) < n {
			continue
		}
		tail := num[len(num)-n:]
		if isDigits(tail) {
			out = append(out, tail)
		}
	}
	return out
}

// LongNumbers returns whole-word digit runs of at least minDigits digits.
func LongNumbers(text string, minDigits int) []string {
	var out []string
	for _, run := range wordNumbers.FindAllString(text, -1) {
		if len(run) >= minDigits {
			out = append(out, run)
		}
	}
	return out
}

// Tail returns the last n characters of code, or code itself when shorter.
func Tail(code string, n int) string {
	if len(code) <= n {
		return code
	}
	return code[len(code)-n:]
}

// MentionsTail reports whether any number of at least minDigits digits in text
// ends with tail.
func MentionsTail(text, tail string, minDigits int) bool {
	if tail == "" {
		return false
	}
	for _, num := range LongNumbers(text, minDigits) {
		if strings.HasSuffix(num, tail) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
