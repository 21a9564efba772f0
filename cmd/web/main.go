package main

import (
	"flag"
	"os"

	"github.com/retroenv/retrogolib/log"

	"github.com/calderon/vip8"
	"github.com/calderon/vip8/web"
)

func main() {
	port := flag.Int("port", 9999, "port of the server")
	speed := flag.Uint("speed", vip8.DefaultSpeed, "CPU speed in Hz")
	debugger := flag.Bool("debugger", false, "expose the websocket debugger")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	cfg := log.DefaultConfig()
	if *debug {
		cfg.Level = log.DebugLevel
	}
	logger := log.NewWithConfig(cfg)

	if flag.NArg() < 1 {
		logger.Error("must provide the path to a rom as an argument")
		os.Exit(1)
	}

	program, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Error("reading rom", log.String("error", err.Error()))
		os.Exit(1)
	}

	mem := vip8.NewMemory()
	server := web.NewServer(mem, logger, func(config *web.ServerConfig) {
		config.UseDebugger = *debugger
		config.Speed = *speed
	})

	if err := server.LoadProgram(program); err != nil {
		logger.Error("loading rom", log.String("error", err.Error()))
		os.Exit(1)
	}

	if err := server.Listen(*port); err != nil {
		logger.Error("server stopped", log.String("error", err.Error()))
		os.Exit(1)
	}
}
