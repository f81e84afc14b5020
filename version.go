package grabber

// Version is the module's release version, reported by the CLI's
// -v/--version flag.
const Version = "0.1.0"
