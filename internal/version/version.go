// Package version provides build and version information.
package version

import "fmt"

// Set at build time with
// -ldflags "-X github.com/litescript/torrenthunt/internal/version.Commit=..."
var (
	Version = "0.1.0"
	Commit  = ""
	Date    = ""
)

// String returns the version with commit and build date when known.
func String() string {
	s := "v" + Version
	switch {
	case Commit != "" && Date != "":
		s += fmt.Sprintf(" (%s, built %s)", Commit, Date)
	case Commit != "":
		s += fmt.Sprintf(" (%s)", Commit)
	}
	return s
}
