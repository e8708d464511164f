// Package constants provides shared constants used throughout the syncals codebase.
// This includes timeouts, reconciliation defaults, file permissions, and other
// configuration values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the timeout for fetching remote calendars
	DefaultHTTPTimeout = 30 * time.Second

	// SourceFetchTimeout is the timeout for fetching records from a single provider
	SourceFetchTimeout = 2 * time.Minute

	// ApplyTimeout bounds a single sink apply call
	ApplyTimeout = 10 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 15 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Reconciliation defaults
const (
	// DefaultCompareLength is how many runes of a description the target keeps
	DefaultCompareLength = 20

	// DefaultMinDuration is the shortest booking the target accepts
	DefaultMinDuration = 10 * time.Minute

	// DefaultSubjectSeparator joins resolved identity components
	DefaultSubjectSeparator = "/"

	// DefaultTargetSeparator splits target booking subjects
	DefaultTargetSeparator = "、"

	// DefaultNoRoom is the resource placeholder for persons without a room
	DefaultNoRoom = "no-room"

	// DefaultNoPerson is the person placeholder for rooms without a person
	DefaultNoPerson = "no-person"

	// DefaultRangeDays is how many days ahead a run looks by default
	DefaultRangeDays = 14

	// TargetSubjectFields is the number of fields in a target booking subject:
	// office, menu, resource, person, reference
	TargetSubjectFields = 5
)

// Origin tags used when no configuration overrides them
const (
	// DefaultSourceOrigin tags records fetched from the source calendar
	DefaultSourceOrigin = "source"

	// DefaultTargetOrigin tags records fetched from the booking target
	DefaultTargetOrigin = "target"
)

// Path constants
const (
	// DefaultConfigName is the config file name searched in . and $HOME
	DefaultConfigName = "syncals"

	// DefaultCachePath is the default snapshot of the last fetch
	DefaultCachePath = "log/fetched.yaml"

	// DefaultLogFile is the default log file path when file logging is enabled
	DefaultLogFile = "log/syncals.log"
)

// Format constants
const (
	// TimeFormatChange is the layout used when listing change records
	TimeFormatChange = "01/02 15:04"

	// TimeFormatEnd is the end-time layout following TimeFormatChange
	TimeFormatEnd = "15:04"
)
