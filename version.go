package conformer

// Version is the release of the driver. It is overridden at build time with
// -ldflags "-X github.com/aretw0/conformer.Version=...".
var Version = "dev"
