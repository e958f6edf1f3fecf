// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log is a thin structured-logging façade over go-ethereum's log
// package, in the same key/value call style the teacher used throughout
// storage/netstore.go and api/inspector.go (e.g. log.Trace("msg", "k", v)).
package log

import (
	"io"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger is a named, contextual logger. Use New to attach a chash instance
// or table generation to every line it emits.
type Logger = ethlog.Logger

// New creates a Logger with the given static key/value context.
func New(ctx ...interface{}) Logger {
	return ethlog.New(ctx...)
}

func Trace(msg string, ctx ...interface{}) { ethlog.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { ethlog.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { ethlog.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { ethlog.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { ethlog.Error(msg, ctx...) }

// The handful of re-exports below let chashbench configure the root
// logger's output format the same way cmd/swarm does (colorable terminal
// output when attached to a tty, plain otherwise) without reaching past
// this façade into go-ethereum/log directly.
const (
	LvlCrit  = ethlog.LvlCrit
	LvlError = ethlog.LvlError
	LvlWarn  = ethlog.LvlWarn
	LvlInfo  = ethlog.LvlInfo
	LvlDebug = ethlog.LvlDebug
	LvlTrace = ethlog.LvlTrace
)

func Root() Logger { return ethlog.Root() }

func LvlFilterHandler(lvl ethlog.Lvl, h ethlog.Handler) ethlog.Handler {
	return ethlog.LvlFilterHandler(lvl, h)
}

func StreamHandler(wr io.Writer, fmtr ethlog.Format) ethlog.Handler {
	return ethlog.StreamHandler(wr, fmtr)
}

func TerminalFormat(usecolor bool) ethlog.Format { return ethlog.TerminalFormat(usecolor) }
