// Package log builds the per-session logger: a *logrus.Entry carrying
// static fields, routed to a file sink. This sink doubles as the
// append-only "log" file every database directory carries, so it is always
// opened in the plain text formatter regardless of debug mode — the file
// must stay human-readable.
package log

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Fields are the static per-session fields every noid log entry carries.
type Fields struct {
	DBName        string
	GeneratorType string
	Template      string
}

// New builds the session logger: dbDir/log is opened for append and used
// as the logrus output regardless of debug mode; debug mode also lowers
// the level to Debug.
func New(dbDir string, debug bool, fields Fields) (*logrus.Entry, error) {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	file, err := os.OpenFile(filepath.Join(dbDir, "log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(file)

	return logger.WithFields(logrus.Fields{
		"db":            fields.DBName,
		"generatorType": fields.GeneratorType,
		"template":      fields.Template,
	}), nil
}

// Discard returns a logger that drops everything below error level and
// writes nowhere, for contexts with no open database directory yet (e.g.
// validating a template before create()).
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.SetLevel(logrus.ErrorLevel)
	return logger.WithField("db", "")
}
