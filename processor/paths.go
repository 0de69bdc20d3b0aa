package processor

import (
	"strings"

	"github.com/cast-iron/crucible/types"
)

// Staging directories are siblings of the config object itself: a config at
// etl/invoices/config.toml with the defaults owns etl/invoices/inbox,
// etl/invoices/processing, etl/invoices/archive and etl/invoices/error.

// InboxPath returns the directory watched for new data files.
func (c *Config) InboxPath(configID types.ObjectID) types.ObjectID {
	return configID.Parent().Join(c.InboxDirectory)
}

// ProcessingPath returns the directory holding files currently being worked.
func (c *Config) ProcessingPath(configID types.ObjectID) types.ObjectID {
	return configID.Parent().Join(c.ProcessingDirectory)
}

// ArchivePath returns the directory holding successfully processed files.
func (c *Config) ArchivePath(configID types.ObjectID) types.ObjectID {
	return configID.Parent().Join(c.ArchiveDirectory)
}

// ErrorPath returns the directory holding failed files.
func (c *Config) ErrorPath(configID types.ObjectID) types.ObjectID {
	return configID.Parent().Join(c.ErrorDirectory)
}

// Matches reports whether the config claims the given data object: the
// object must sit directly in the config's inbox and its filename must
// match the glob.
func (c *Config) Matches(configID, dataID types.ObjectID) bool {
	if dataID.Parent() != c.InboxPath(configID) {
		return false
	}
	return c.pattern.Match(dataID.Filename())
}

// ErrorLogName derives the error log object name for a failed data file:
// dots become underscores and an _error_log.txt suffix is appended, so
// data.csv produces data_csv_error_log.txt.
func ErrorLogName(filename string) string {
	return strings.ReplaceAll(filename, ".", "_") + "_error_log.txt"
}
