package config

import "time"

const SourceFileExt = ".vex"

// MaxRecursionDepth bounds the parser's expression nesting.
const MaxRecursionDepth = 500

// MaxOverloadCandidates bounds one overload set; candidate liveness is a
// single 64-bit mask.
const MaxOverloadCandidates = 64

// Slice bound defaults for time-series indexing: an omitted lower bound is
// DateZero, an omitted upper bound is the far-future sentinel.
var (
	DateZero    = time.Time{}
	DateFarAway = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Names of the defaultable trailing arguments overload resolution appends
// after a descriptor wins.
const (
	DefaultRandomSeed = int64(1)
)
