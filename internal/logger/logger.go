package logger

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

const TimestampFormat = "2006-01-02 15:04:05"

// PlainFormatter writes "LEVEL timestamp message key=value..." lines.
type PlainFormatter struct {
	TimestampFormat string
}

var levelDesc = map[logrus.Level]string{
	logrus.PanicLevel: "PANIC",
	logrus.FatalLevel: "FATAL",
	logrus.ErrorLevel: "ERROR",
	logrus.WarnLevel:  "WARN ",
	logrus.InfoLevel:  "INFO ",
	logrus.DebugLevel: "DEBUG",
	logrus.TraceLevel: "TRACE",
}

func (f PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("%s %s %s", levelDesc[entry.Level], entry.Time.Format(f.TimestampFormat), entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		line += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}
	return []byte(line + "\n"), nil
}

// New returns a logger at the named level writing to file, or to stderr if
// file is empty.  The returned closer releases the file.
func New(level, file string) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if file != "" {
		f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(PlainFormatter{TimestampFormat: TimestampFormat})
	l.SetLevel(lvl)
	return l, out, nil
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
