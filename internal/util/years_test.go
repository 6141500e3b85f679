package util

import "testing"

func TestParseTerm(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		bareYear bool
		start    any
		end      any
	}{
		{name: "range", input: "Term: 2020-2024", bareYear: true, start: 2020, end: 2024},
		{name: "range with words", input: "serving 2021 through 2025", bareYear: true, start: 2021, end: 2025},
		{name: "elected month", input: "She was elected in November 2018.", bareYear: true, start: 2018, end: 2022},
		{name: "re-elected", input: "Re-elected 2016", bareYear: false, start: 2016, end: 2020},
		{name: "expires only", input: "Term expires December 2026", bareYear: false, start: "", end: 2026},
		{name: "elected and expires", input: "Appointed in 2019, term ends 2021.", bareYear: true, start: 2019, end: 2021},
		{name: "bare year", input: "Since 2021.", bareYear: true, start: 2021, end: 2025},
		{name: "bare year in parentheses", input: "Jordan Wu (2022)", bareYear: true, start: 2022, end: 2026},
		{name: "bare year disabled", input: "Since 2021.", bareYear: false, start: "", end: ""},
		{name: "phone digits are not a year", input: "Call 555-201-2024", bareYear: true, start: "", end: ""},
		{name: "dotted phone", input: "555.201.1999", bareYear: true, start: "", end: ""},
		{name: "street number is not a year", input: "City Hall, 2000 Main Street", bareYear: true, start: "", end: ""},
		{name: "street abbreviation", input: "1999 N. Oak Ave.", bareYear: true, start: "", end: ""},
		{name: "suite number", input: "Suite 1900, Testville", bareYear: true, start: "", end: ""},
		{name: "year after address", input: "2000 Main St. Serving since 2018.", bareYear: true, start: 2018, end: 2022},
		{name: "inverted range ignored", input: "2024-2020", bareYear: false, start: "", end: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTerm(tc.input, 4, tc.bareYear)
			if DerefInt(got.Start) != tc.start || DerefInt(got.End) != tc.end {
				t.Fatalf("got %v-%v want %v-%v", DerefInt(got.Start), DerefInt(got.End), tc.start, tc.end)
			}
		})
	}
}
