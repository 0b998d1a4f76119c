package cli

// Default values for CLI flags and output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// DefaultLocale is used to pick localized names for display.
	DefaultLocale = "en-US"
	// MaxSummaryLength is the maximum length of an app summary in listings.
	MaxSummaryLength = 50
)
