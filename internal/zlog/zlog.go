/*
Copyright © 2024 the zonalstats authors.
This file is part of zonalstats.

zonalstats is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

zonalstats is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with zonalstats.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package zlog centralizes the logrus setup shared by the zonalstats
// command line tool and its internal packages, so every component logs
// through the same formatter and level.
package zlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger writing structured text to stderr at level,
// falling back to Info on an unparseable level string.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// SetGlobal installs log as the logger backing logrus's package-level
// functions, so code that logs via logrus.WithField et al. picks up the
// same configuration.
func SetGlobal(log *logrus.Logger) {
	logrus.SetOutput(log.Out)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())
}
