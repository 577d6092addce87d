package config

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = "wlcheck.yaml"

// ConfigFileNameAlt is the alternative spelling also accepted by FindConfig.
const ConfigFileNameAlt = "wlcheck.yml"

// CaseFileExtensions are the extensions the CLI accepts for case files.
var CaseFileExtensions = []string{".yaml", ".yml"}

// Step limits
const (
	DefaultMaxSteps = 1_000_000
	MinMaxSteps     = 1
	MaxMaxSteps     = 1 << 30
)

// Collection policy bounds
const (
	DefaultGCAllocBudget = 1 << 16
	MaxGCAllocBudget     = 1 << 26
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)
