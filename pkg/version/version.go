package version

// Build metadata injected with -ldflags, for example:
// -X 'github.com/compozy/catalog/pkg/version.Version=v0.3.0'
// -X 'github.com/compozy/catalog/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/catalog/pkg/version.BuildDate=2026-01-01T00:00:00Z'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info is reported by the version command and the health endpoint.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

func GetVersion() string {
	return Version
}
