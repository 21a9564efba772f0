package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"

	"github.com/calderon/vip8"
)

func createLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

func main() {
	speed := flag.Uint("speed", vip8.DefaultSpeed, fmt.Sprintf("CPU speed in Hz, in the range [%d, %d]", vip8.MinSpeed, vip8.MaxSpeed))
	noTerm := flag.Bool("noterm", false, "turn off the terminal display of the emulator")
	debug := flag.Bool("debug", false, "enable debug logging")
	restore := flag.String("restore", "", "restore a machine snapshot before running")

	flag.Parse()

	logger := createLogger(*debug)

	if flag.NArg() < 1 {
		logger.Error("must provide the path to a rom as an argument")
		os.Exit(1)
	}

	mem := vip8.NewMemory()
	kb := vip8.NewTerminalKeyboard()
	defer kb.Close()
	b := vip8.NewDummyBuzzer()

	var d vip8.Display
	if *noTerm {
		d = vip8.NewInMemoryDisplay()
	} else {
		d = vip8.NewTerminalDisplay()
	}

	cpu := vip8.NewCpu(mem, vip8.SmallScreen, d, kb, b)
	cpu.SetLogger(logger)

	program, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Error("reading rom", log.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cpu.LoadProgram(program); err != nil {
		logger.Error("loading rom", log.String("error", err.Error()))
		os.Exit(1)
	}

	if *restore != "" {
		f, err := os.Open(*restore)
		if err != nil {
			logger.Error("opening snapshot", log.String("error", err.Error()))
			os.Exit(1)
		}
		err = cpu.LoadState(f)
		f.Close()
		if err != nil {
			logger.Error("restoring snapshot", log.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := cpu.Boot(); err != nil {
		logger.Error("booting", log.String("error", err.Error()))
		os.Exit(1)
	}

	if err := cpu.RunAtSpeed(min(max(*speed, vip8.MinSpeed), vip8.MaxSpeed)); err != nil {
		logger.Error("machine stopped", log.String("error", err.Error()))
		os.Exit(1)
	}
}
