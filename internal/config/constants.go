package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	WorkerShutdownTimeout = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days

	// Worker timeouts
	WorkerCheckInterval = 15 * time.Second
	WorkerSleepDuration = 100 * time.Millisecond
)

// Session configuration constants
const (
	// Session settings
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	// Session name
	SessionName = "mathapp-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob: data:;"
)

// Progress and scoring constants
const (
	// QuestionsPerRound is the number of questions in one training round.
	QuestionsPerRound = 10

	// PassThresholdDefault is the minimum score (out of QuestionsPerRound)
	// for a training round to register progress.
	PassThresholdDefault = 8

	// PassThresholdTables applies to times-table style drills, which are
	// expected to be nearly perfect before counting.
	PassThresholdTables = 9

	// XPCapPerLevel limits how many passing rounds earn XP for a given
	// exercise and level. Further passes still count attempts but award 0 XP.
	XPCapPerLevel = 3

	// XPPerLevel is the XP awarded per credited passing round, multiplied by
	// the level (level 1 = 10, level 2 = 20, level 3 = 30).
	XPPerLevel = 10

	// DefaultMaxHistory bounds the per-exercise best-score/best-time history.
	DefaultMaxHistory = 5

	// DefaultSubQuestsPerDay is the number of sub-skills drawn for a daily quest.
	DefaultSubQuestsPerDay = 3

	// DefaultQuestBonusXP is the bonus awarded when a day's quest completes.
	DefaultQuestBonusXP = 50
)

// Generator constants
const (
	// OptionCount is the number of answer choices a generated question carries.
	OptionCount = 4

	// MaxResolverPasses bounds the dynamic engine's dependency resolution.
	MaxResolverPasses = 5

	// DisplayDecimals is the number of decimals kept when substituting numeric
	// values into question templates.
	DisplayDecimals = 2
)
