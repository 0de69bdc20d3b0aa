package types

// Version is the crucible release version.
const Version = "0.1.0"
