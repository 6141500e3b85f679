package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/util"
)

func testCity() config.CityConfig {
	city := config.DefaultCity()
	city.Name = "Testville"
	city.Slug = "testville"
	city.EmailDomain = "testville.gov"
	return city
}

func newTestExtractor(order string) *Extractor {
	city := testCity()
	city.NameOrder = order
	return NewExtractor(city, nil, nil)
}

type candidateView struct {
	Name      string
	Role      internal.Role
	District  string
	TermStart any
	TermEnd   any
}

func view(items []internal.CandidateRecord) []candidateView {
	out := make([]candidateView, 0, len(items))
	for _, c := range items {
		out = append(out, candidateView{
			Name:      c.RawName,
			Role:      c.Role,
			District:  util.DerefString(c.District),
			TermStart: util.DerefInt(c.TermStart),
			TermEnd:   util.DerefInt(c.TermEnd),
		})
	}
	return out
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name  string
		order string
		text  string
		want  []candidateView
	}{
		{
			name: "role then name with elected year",
			text: "Mayor Casey McKeon was elected in 2022.",
			want: []candidateView{{Name: "Casey McKeon", Role: internal.RoleMayor, TermStart: 2022, TermEnd: 2026}},
		},
		{
			name: "name then role with bare year",
			text: "2022 – Casey McKeon, Mayor",
			want: []candidateView{{Name: "Casey McKeon", Role: internal.RoleMayor, TermStart: 2022, TermEnd: 2026}},
		},
		{
			name: "stacked roster lines vote for name first",
			text: "Jordan Wu\nMayor\nLee K. Fink\nMayor Pro Tem\nAvery Stone\nCouncilmember, District 3",
			want: []candidateView{
				{Name: "Jordan Wu", Role: internal.RoleMayor, TermStart: "", TermEnd: ""},
				{Name: "Lee K. Fink", Role: internal.RoleViceMayor, TermStart: "", TermEnd: ""},
				{Name: "Avery Stone", Role: internal.RoleCouncilmember, District: "District 3", TermStart: "", TermEnd: ""},
			},
		},
		{
			name:  "forced role first",
			order: config.NameOrderRoleFirst,
			text:  "Mayor\nJordan Wu\nVice Mayor\nLee Fink",
			want: []candidateView{
				{Name: "Jordan Wu", Role: internal.RoleMayor, TermStart: "", TermEnd: ""},
				{Name: "Lee Fink", Role: internal.RoleViceMayor, TermStart: "", TermEnd: ""},
			},
		},
		{
			name: "hyphenated compound role",
			text: "Mayor Pro-Tem Jordan Wu serves Ward Two.",
			want: []candidateView{{Name: "Jordan Wu", Role: internal.RoleViceMayor, District: "Ward 2", TermStart: "", TermEnd: ""}},
		},
		{
			name: "leading skip word trimmed from backward name",
			text: "Meet Jordan Wu, Council Member At-Large, term 2020-2024",
			want: []candidateView{{Name: "Jordan Wu", Role: internal.RoleCouncilmember, District: "At-Large", TermStart: 2020, TermEnd: 2024}},
		},
		{
			name: "forward name starting with skip word dropped",
			text: "Contact the Mayor\nThe Honorable Office",
			want: []candidateView{},
		},
		{
			name: "street number is not a term",
			text: "Mayor Casey McKeon\nCity Hall, 2000 Main Street",
			want: []candidateView{{Name: "Casey McKeon", Role: internal.RoleMayor, TermStart: "", TermEnd: ""}},
		},
		{
			name: "duplicate mention folded",
			text: "District 1: Mayor Jordan Wu\nMayor Jordan Wu was elected in 2018.",
			want: []candidateView{{Name: "Jordan Wu", Role: internal.RoleMayor, District: "District 1", TermStart: 2018, TermEnd: 2022}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.order
			if order == "" {
				order = config.NameOrderAuto
			}
			got := view(newTestExtractor(order).ExtractText(tt.text, internal.RankRoster, "https://testville.gov/council"))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractTextBareKeywordNextToCompoundWords(t *testing.T) {
	got := newTestExtractor(config.NameOrderAuto).ExtractText("Mayor, Pro Tem Jordan Wu", internal.RankRoster, "")
	for _, c := range got {
		if c.Role == internal.RoleMayor {
			t.Fatalf("bare keyword accepted next to compound words: %+v", c)
		}
	}
}

func TestExtractTextClaimsTokensOnce(t *testing.T) {
	got := newTestExtractor(config.NameOrderAuto).ExtractText("Mayor Jordan Wu Councilmember", internal.RankRoster, "")
	if len(got) != 1 || got[0].RawName != "Jordan Wu" || got[0].Role != internal.RoleMayor {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestExtractTextCarriesProvenance(t *testing.T) {
	got := newTestExtractor(config.NameOrderAuto).ExtractText("Vice Mayor Lee K. Fink", internal.RankProfile, "https://testville.gov/lee")
	if len(got) != 1 {
		t.Fatalf("len=%d", len(got))
	}
	c := got[0]
	if c.NormalizedName != "lee k fink" || c.SourceRank != internal.RankProfile || c.SourceURL != "https://testville.gov/lee" {
		t.Fatalf("unexpected candidate: %+v", c)
	}
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		url      string
		ok       bool
		name     string
		role     internal.Role
		district string
	}{
		{url: "https://testville.gov/council/mayor-pro-tem-lee-k-fink", ok: true, name: "Lee K. Fink", role: internal.RoleViceMayor},
		{url: "https://testville.gov/council/mayor-jordan-wu/", ok: true, name: "Jordan Wu", role: internal.RoleMayor},
		{url: "/officials/district-3-avery-stone.html", ok: true, name: "Avery Stone", role: internal.RoleUnknown, district: "District 3"},
		{url: "https://testville.gov/council/councilmember-ana_ruiz", ok: true, name: "Ana Ruiz", role: internal.RoleCouncilmember},
		{url: "https://testville.gov/council/2024-agenda", ok: false},
		{url: "https://testville.gov/about", ok: false},
		{url: "https://testville.gov/council/meet-the-mayor", ok: false},
		{url: "https://testville.gov/", ok: false},
	}

	e := newTestExtractor(config.NameOrderAuto)
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := e.ExtractURL(tt.url)
			if ok != tt.ok {
				t.Fatalf("ok=%v want %v (%+v)", ok, tt.ok, got)
			}
			if !ok {
				return
			}
			if got.RawName != tt.name || got.Role != tt.role || util.DerefString(got.District) != tt.district {
				t.Fatalf("got %q %s %q", got.RawName, got.Role, util.DerefString(got.District))
			}
			if got.SourceRank != internal.RankInferredURL || got.SourceURL != tt.url {
				t.Fatalf("provenance: %+v", got)
			}
		})
	}
}

func TestDetectPageKind(t *testing.T) {
	d := NewDialect(testCity())

	roster := internal.PageInput{Text: "Jordan Wu, Mayor\nLee Fink, Vice Mayor\nAvery Stone, Councilmember"}
	if got := DetectPageKind(roster, d); got.Rank != internal.RankRoster || got.RoleHits != 3 {
		t.Fatalf("roster detected as %+v", got)
	}

	profile := internal.PageInput{Text: "Mayor Jordan Wu was elected in 2022.", Emails: []string{"jwu@testville.gov"}}
	if got := DetectPageKind(profile, d); got.Rank != internal.RankProfile {
		t.Fatalf("profile detected as %+v", got)
	}

	directory := internal.PageInput{Text: "Staff directory", Emails: []string{"a@x.gov", "b@x.gov", "c@x.gov"}}
	if got := DetectPageKind(directory, d); got.Rank != internal.RankRoster {
		t.Fatalf("directory detected as %+v", got)
	}
}

func TestDialect(t *testing.T) {
	d := NewDialect(testCity())
	if got := d.StripRoleWords("mayor pro tem jordan wu"); got != "jordan wu" {
		t.Fatalf("strip=%q", got)
	}
	if !d.IsRoleWord("Pro-Tem") || d.IsRoleWord("jordan") {
		t.Fatal("role word detection")
	}
	if !d.IsSkip("Meet") {
		t.Fatal("skip word detection")
	}
	for i := 1; i < len(d.phrases); i++ {
		if phraseLen(d.phrases[i]) > phraseLen(d.phrases[i-1]) {
			t.Fatalf("phrase %v tried after shorter %v", d.phrases[i].words, d.phrases[i-1].words)
		}
	}
}
