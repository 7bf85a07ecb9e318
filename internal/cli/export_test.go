package cli

// Test hooks for package-internal helpers.
var (
	SplitShellLine = splitShellLine
	HiddenPath     = hiddenPath
	SplitRef       = splitRef
)
