package app

// Build identity stamped with -ldflags by the release build. The dev
// defaults keep local runs and tests honest about what they are. The CLI
// -version flag and the server's health endpoint report these values.
var (
	// BuildVersion is the semantic version of the binary.
	BuildVersion = "0.0.0-dev"
	// BuildCommit is the VCS commit the binary was built from.
	BuildCommit = "unknown"
	// BuildDate is the ISO-8601 build timestamp.
	BuildDate = "unknown"
)
