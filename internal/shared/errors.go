package shared

type Error string

// Implement the error interface
func (e Error) Error() string { return string(e) }

//------------
// Definitions
//------------

// config errors
const (
	ErrMissingDatabaseURL = Error("database URL is required")
	ErrInvalidLogLevel    = Error("invalid log level")
	ErrCreateFile         = Error("could not create the file")
	ErrEncodeFile         = Error("could not encode to file")
)

// connection errors
const (
	ErrUnsupportedDatabase = Error("unsupported database type")
	ErrInvalidDatabaseURL  = Error("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
)

// migration errors
const ErrSchemaOutdated = Error("database schema is outdated")

// levels / max_id errors
const (
	ErrDuplicateLevel = Error("level already recorded")
	ErrDuplicateHash  = Error("level hash already recorded")
	ErrHashTooLong    = Error("level hash exceeds 60 characters")
	ErrLevelNotFound  = Error("level not found")
	ErrMaxIDMissing   = Error("max_id table has no row")
)
