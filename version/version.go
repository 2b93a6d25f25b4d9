package version

// Version is the current release of avisos.
const Version = "0.1.0"
