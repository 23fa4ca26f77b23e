// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config holds the setup shared by the command line tools.
package config

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

type Frontend string

const (
	FRONTEND_WINDOW   Frontend = "window"
	FRONTEND_TERMINAL Frontend = "terminal"
	FRONTEND_NONE     Frontend = "none"
)

var Frontends = []Frontend{FRONTEND_WINDOW, FRONTEND_TERMINAL, FRONTEND_NONE}

// ParseFrontend matches name case-insensitively against Frontends.
func ParseFrontend(name string) (Frontend, error) {
	for _, frontend := range Frontends {
		if strings.EqualFold(name, string(frontend)) {
			return frontend, nil
		}
	}

	return "", fmt.Errorf("unknown frontend '%s'", name)
}

// ReadsStdin reports whether the frontend takes its input from stdin, which
// rules out the interactive debug console.
func (f Frontend) ReadsStdin() bool {
	return f == FRONTEND_TERMINAL
}

// CreateLogger returns a logger at debug level for debug, error level for
// quiet and info level otherwise.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
