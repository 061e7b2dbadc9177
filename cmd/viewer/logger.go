package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// initLogger configures the process logger. Level comes from LOG_LEVEL,
// format from LOG_FORMAT ("json" or text).
func initLogger() *logrus.Logger {
	log := logrus.New()

	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return log
}
