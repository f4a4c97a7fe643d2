package app

// Build information, set with -ldflags "-X" at release time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// VersionString is printed by --version.
func VersionString() string {
	return "heroprint " + BuildVersion + " (" + BuildCommit + ", " + BuildDate + ")"
}
