/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
)

var (
	IsDevelopment *bool
	ServiceName   *string
	ByPassAuth    *bool
)

func init() {
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName = flag.String("service", APIServer, "name of the service reported to logging and tracing")
	ByPassAuth = flag.Bool("no_auth", false, "skip the auth delegation middleware, for local development only")
}

// ParseFlags parses the command line. Call once from main before reading any
// flag value. Registration alone happens at init so the pointers always hold
// their defaults; parsing must not, or test binaries would choke on the
// testing framework's own flags.
func ParseFlags() {
	flag.Parse()
}
