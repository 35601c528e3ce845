package config

import (
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger.  JSON output is the default so that
// log shippers can parse every line; LOG_FORMAT=text is handy locally.
func NewLogger(cfg Config) *logrus.Logger {
    l := logrus.New()
    l.SetOutput(os.Stdout)
    if strings.EqualFold(cfg.LogFormat, "text") {
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        l.SetFormatter(&logrus.JSONFormatter{})
    }
    level, err := logrus.ParseLevel(cfg.LogLevel)
    if err != nil {
        level = logrus.InfoLevel
    }
    l.SetLevel(level)
    return l
}
