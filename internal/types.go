package internal

type Role string

const (
	RoleMayor         Role = "MAYOR"
	RoleViceMayor     Role = "VICE_MAYOR"
	RoleCouncilmember Role = "COUNCILMEMBER"
	RoleUnknown       Role = "UNKNOWN"
)

// Label is the human form used in exports and tables.
func (r Role) Label() string {
	switch r {
	case RoleMayor:
		return "Mayor"
	case RoleViceMayor:
		return "Vice Mayor / Mayor Pro Tem"
	case RoleCouncilmember:
		return "Councilmember"
	default:
		return ""
	}
}

func ParseRole(value string) Role {
	switch value {
	case "mayor", "MAYOR", "Mayor":
		return RoleMayor
	case "vice_mayor", "VICE_MAYOR", "vice mayor", "mayor pro tem", "mayor_pro_tem":
		return RoleViceMayor
	case "councilmember", "COUNCILMEMBER", "council member", "council":
		return RoleCouncilmember
	default:
		return RoleUnknown
	}
}

// SourceRank orders provenance authority. Higher wins.
type SourceRank int

const (
	RankInferredURL SourceRank = 1
	RankRoster      SourceRank = 2
	RankProfile     SourceRank = 3
	RankOverride    SourceRank = 4
)

func (r SourceRank) String() string {
	switch r {
	case RankInferredURL:
		return "url"
	case RankRoster:
		return "roster"
	case RankProfile:
		return "profile"
	case RankOverride:
		return "override"
	default:
		return "unknown"
	}
}

func ParseSourceRank(value string) SourceRank {
	switch value {
	case "url", "inferred", "inferred_url":
		return RankInferredURL
	case "roster":
		return RankRoster
	case "profile":
		return RankProfile
	case "override":
		return RankOverride
	default:
		return 0
	}
}

type CandidateRecord struct {
	RawName        string
	NormalizedName string
	Role           Role
	District       *string
	TermStart      *int
	TermEnd        *int
	SourceRank     SourceRank
	SourceURL      string
}

type ArtifactKind string

const (
	ArtifactEmail ArtifactKind = "email"
	ArtifactPhone ArtifactKind = "phone"
	ArtifactPhoto ArtifactKind = "photo"
	ArtifactBio   ArtifactKind = "bio"
)

type Artifact struct {
	Kind    ArtifactKind
	Value   string
	Context string
}

type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceHigh
)

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// PageInput is one harvested page as handed over by the snapshot layer.
type PageInput struct {
	URL        string     `json:"url"`
	Text       string     `json:"page_text"`
	Emails     []string   `json:"emails"`
	Phones     []string   `json:"phones"`
	Images     []Image    `json:"images"`
	Bios       []string   `json:"bios"`
	SourceRank SourceRank `json:"source_rank"`
}

type Official struct {
	City            string     `json:"city"`
	Key             string     `json:"key"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	District        *string    `json:"district"`
	Email           *string    `json:"email"`
	EmailConfidence Confidence `json:"-"`
	Phone           *string    `json:"phone"`
	PhotoURL        *string    `json:"photo_url"`
	Bio             *string    `json:"bio"`
	TermStart       *int       `json:"term_start"`
	TermEnd         *int       `json:"term_end"`
	Overridden      bool       `json:"overridden"`
	Sources         []string   `json:"sources,omitempty"`
}

type OverrideEntry struct {
	Name      string
	District  *string
	TermStart *int
	TermEnd   *int
	Source    string
}

type RunRow struct {
	ID         string
	City       string
	StartedAt  string
	FinishedAt string
	Status     string
	Pages      int
	Candidates int
	Officials  int
	Error      string
}

// PageRow records one snapshot a run read, keyed by its content hash.
type PageRow struct {
	RunID      string
	Path       string
	URL        string
	SHA256     string
	Format     string
	Rank       SourceRank
	Candidates int
	Archived   string
	Error      string
}

const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)
