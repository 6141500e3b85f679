package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearRangePattern = regexp.MustCompile(`\b((?:19|20)\d{2})\s*(?:-|–|—|to|through)\s*((?:19|20)\d{2})\b`)
	electedPattern   = regexp.MustCompile(`(?i)\b(?:re-?)?(?:elected|appointed|sworn in)\s+(?:in\s+)?(?:[a-z]+\s+(?:\d{1,2},?\s+)?)?((?:19|20)\d{2})\b`)
	expiresPattern   = regexp.MustCompile(`(?i)\bterm\s+(?:expires|ends)\s+(?:in\s+)?(?:[a-z]+\s+(?:\d{1,2},?\s+)?)?((?:19|20)\d{2})\b`)
	bareYearPattern  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

	streetAfterPattern = regexp.MustCompile(`^\s+(?:(?:[NSEW]\.?|North|South|East|West)\s+)?(?:[A-Z][A-Za-z'.]*\s+){0,3}` +
		`(?:St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard|Dr|Drive|Ln|Lane|Way|Pl|Place|Ct|Court|Pkwy|Parkway|Hwy|Highway|Plaza|Sq|Square)\b`)
	unitBeforePattern = regexp.MustCompile(`(?i)\b(?:suite|ste|room|rm|unit|box|floor|no)\.?\s*#?\s*$`)
)

type ParsedTerm struct {
	Start *int
	End   *int
}

// ParseTerm reads term years out of a short context snippet. An explicit
// range wins; otherwise "elected in" / "term expires" phrases fill the
// bounds, and with bareYear set the first free-standing year becomes the
// start. A start without an end gets end = start + termLength.
func ParseTerm(text string, termLength int, bareYear bool) ParsedTerm {
	var out ParsedTerm

	if m := yearRangePattern.FindStringSubmatch(text); len(m) > 2 {
		start, end := atoi(m[1]), atoi(m[2])
		if start != nil && end != nil && *end >= *start {
			return ParsedTerm{Start: start, End: end}
		}
	}

	if m := electedPattern.FindStringSubmatch(text); len(m) > 1 {
		out.Start = atoi(m[1])
	}
	if m := expiresPattern.FindStringSubmatch(text); len(m) > 1 {
		out.End = atoi(m[1])
	}

	if out.Start == nil && bareYear {
		for _, loc := range bareYearPattern.FindAllStringSubmatchIndex(text, -1) {
			if phoneLike(text, loc[0], loc[1]) || addressLike(text, loc[0], loc[1]) {
				continue
			}
			y := atoi(text[loc[2]:loc[3]])
			if y == nil || (out.End != nil && *y >= *out.End) {
				continue
			}
			out.Start = y
			break
		}
	}

	if out.Start != nil && out.End == nil && termLength > 0 {
		out.End = IntPtr(*out.Start + termLength)
	}
	return out
}

// phoneLike rejects four-digit runs glued to other digits by phone or date
// punctuation, e.g. the 2024 in "555-202-2024".
func phoneLike(text string, start, end int) bool {
	if start > 0 {
		c := text[start-1]
		if isDigit(c) || (strings.IndexByte("-./", c) >= 0 && start > 1 && isDigit(text[start-2])) {
			return true
		}
	}
	if end < len(text) {
		c := text[end]
		if isDigit(c) || (strings.IndexByte("-./", c) >= 0 && end+1 < len(text) && isDigit(text[end+1])) {
			return true
		}
	}
	return false
}

// addressLike rejects house and suite numbers: "2000 Main Street", "Suite 1900".
func addressLike(text string, start, end int) bool {
	return streetAfterPattern.MatchString(text[end:]) || unitBeforePattern.MatchString(text[:start])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func atoi(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
