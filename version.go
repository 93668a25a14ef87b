package yurt

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/yurt.Version=...".
var Version = "dev"
