package version

// Version is the current version of the trader.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/chikanerick/asterdex-trading-bot/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// GetVersion returns the current version of the trader.
func GetVersion() string {
	return Version
}
