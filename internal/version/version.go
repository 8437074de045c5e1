package version

// Build information, overridden at release time with
// -ldflags "-X github.com/arthur-debert/tablepatch/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
