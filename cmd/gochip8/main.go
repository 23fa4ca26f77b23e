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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/internal/config"
	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/display"
	"github.com/lassandro/gochip8/pkg/frontend/terminal"
	"github.com/lassandro/gochip8/pkg/frontend/window"
	"github.com/lassandro/gochip8/pkg/input"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/sound"
	"github.com/lassandro/gochip8/pkg/sound/otoplayer"
)

var helpvar bool
var debugvar bool
var verbosevar bool
var quietvar bool
var mutevar bool
var frontendvar string
var beepvar string
var hzvar int
var stackvar int
var scalevar int

const usage = "gochip8 [flags] rom.ch8"

// How long shutdown waits for the sound queue to take the STOP message
const STOP_TIMEOUT = time.Second

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine with a debug console on stdin")
	flag.BoolVar(&verbosevar, "v", false, "Enables debug logging")
	flag.BoolVar(&quietvar, "q", false, "Only logs errors")
	flag.BoolVar(&mutevar, "mute", false, "Disables audio output")
	flag.StringVar(&frontendvar, "frontend", string(config.FRONTEND_WINDOW), "Display frontend: window, terminal or none")
	flag.StringVar(&beepvar, "beep", "", "WAV or MP3 file played for the sound timer")
	flag.IntVar(&hzvar, "hz", machine.DefaultSettings.TickRate, "Instructions executed per second")
	flag.IntVar(&stackvar, "stack", machine.DefaultSettings.StackSize, "Maximum call stack depth")
	flag.IntVar(&scalevar, "scale", window.DEFAULT_SCALE, "Window pixels per display cell")
	flag.Parse()
}

func loadSymbols(dbg *debugger.Debugger, rom string, logger *log.Logger) func() {
	path := assembler.SymTablePath(rom)
	file, err := os.Open(path)

	if err != nil {
		logger.Warn("Error loading symbol file", log.String("path", path), log.Err(err))
		return func() {}
	}

	symtable, err := assembler.DecodeSymTable(file)
	file.Close()

	if err != nil {
		logger.Warn("Error decoding symbol file", log.String("path", path), log.Err(err))
		return func() {}
	}

	dbg.SymTable = symtable

	if symtable.Source == "" {
		return func() {}
	}

	source, err := os.Open(symtable.Source)

	if err != nil {
		logger.Warn("Error loading source file", log.String("path", symtable.Source), log.Err(err))
		return func() {}
	}

	dbg.Source = source
	return func() { source.Close() }
}

func loadClip(logger *log.Logger) *sound.Clip {
	if beepvar == "" {
		return sound.DefaultBeep()
	}

	clip, err := sound.LoadClip(beepvar)

	if err != nil {
		logger.Warn("Error loading beep, using default tone", log.String("path", beepvar), log.Err(err))
		return sound.DefaultBeep()
	}

	return clip
}

func createPlayer(logger *log.Logger) sound.Player {
	if mutevar {
		return sound.NullPlayer{}
	}

	player, err := otoplayer.New(sound.DEFAULT_SAMPLE_RATE)

	if err != nil {
		logger.Warn("Audio unavailable, continuing muted", log.Err(err))
		return sound.NullPlayer{}
	}

	return player
}

func gochip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	logger := config.CreateLogger(verbosevar, quietvar)
	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	frontend, err := config.ParseFrontend(frontendvar)

	if err != nil {
		logger.Error("Invalid flags", log.Err(err))
		return 1
	}

	if debugvar && frontend.ReadsStdin() {
		logger.Error("The debug console cannot share stdin with the terminal frontend")
		return 1
	}

	settings := machine.Settings{StackSize: stackvar, TickRate: hzvar}

	if err := settings.Validate(); err != nil {
		logger.Error("Invalid settings", log.Err(err))
		return 1
	}

	file, err := os.Open(args[0])

	if err != nil {
		logger.Error("Error opening ROM", log.Err(err))
		return 1
	}

	defer file.Close()

	keys := input.NewQueue(input.DEFAULT_QUEUE_SIZE)
	tones := sound.NewQueue(sound.DEFAULT_QUEUE_SIZE)

	var screen machine.Display
	shared := display.NewShared()

	if frontend == config.FRONTEND_NONE {
		screen = display.NewHeadless()
	} else {
		screen = shared
	}

	mc, err := machine.New(settings, &machine.DeviceHandler{
		Display: screen,
		Keypad:  input.NewKeypad(keys),
		Sound:   tones,
	}, logger)

	if err != nil {
		logger.Error("Error creating machine", log.Err(err))
		return 1
	}

	// Always attached so the overlay has snapshots to show
	dbg := debugger.New(logger)
	mc.Debugger = dbg

	if debugvar {
		defer loadSymbols(dbg, args[0], logger)()
		dbg.Pause()
	}

	if err := mc.LoadBin(file); err != nil {
		logger.Error("Error loading ROM", log.Err(err))
		return 1
	}

	root := app.Context()
	ctx, cancel := context.WithCancel(root)
	defer cancel()

	player := createPlayer(logger)
	defer player.Close()

	playctx, silence := context.WithCancel(root)
	defer silence()

	var wg sync.WaitGroup
	consumer := sound.NewConsumer(tones, player, loadClip(logger), logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Ends on the STOP queued at shutdown, or on silence
		if err := consumer.Run(playctx); err != nil {
			logger.Error("Audio playback failed", log.Err(err))
		}
	}()

	faults := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		faults <- mc.Run(ctx)
	}()

	if debugvar {
		console := newConsole(dbg, os.Stdout, cancel)
		go console.monitor(ctx)
		go console.repl(os.Stdin)
	}

	switch frontend {
	case config.FRONTEND_WINDOW:
		win := window.New(shared, keys, dbg, logger, window.Options{
			Scale: scalevar,
			Title: "gochip8 - " + args[0],
		})

		go func() {
			<-ctx.Done()
			win.Close()
		}()

		if err := win.Run(); err != nil {
			logger.Error("Window failed", log.Err(err))
		}

	case config.FRONTEND_TERMINAL:
		term := terminal.New(os.Stdin, os.Stdout, shared, keys, dbg, logger)

		if err := term.Run(ctx); err != nil {
			logger.Error("Terminal failed", log.Err(err))
		}

	case config.FRONTEND_NONE:
		<-ctx.Done()
	}

	cancel()
	fault := <-faults
	stopctx, stop := context.WithTimeout(root, STOP_TIMEOUT)
	if !tones.Stop(stopctx) {
		logger.Warn("Sound consumer did not accept stop")
		silence()
	}
	stop()
	wg.Wait()

	if fault != nil {
		logger.Error("Machine halted", log.Err(fault))
		return 1
	}

	return 0
}

func main() {
	os.Exit(gochip8())
}
