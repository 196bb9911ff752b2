// Command noded is the firmware entry point: it parses a node's wiring
// from flags, builds its application tasks, and runs Node until
// SIGINT/SIGTERM. Grounded on the teacher's cmd/ublk-mem/main.go:
// flag.Parse for config, logging.DefaultConfig/NewLogger/SetDefault
// for the logger, a signal.Notify-gated run loop for shutdown.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/meshwire/noded"
	"github.com/meshwire/noded/internal/constants"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/logging"
	"github.com/meshwire/noded/internal/secretary"
	"github.com/meshwire/noded/internal/task"
	"github.com/meshwire/noded/tasks/console"
	"github.com/meshwire/noded/tasks/heartbeat"
	"github.com/meshwire/noded/tasks/registers"
)

const (
	memzID      noded.TaskID = noded.FirstAppTask
	heartbeatID noded.TaskID = noded.FirstAppTask + 1
	consoleID   noded.TaskID = noded.FirstAppTask + 2
)

func main() {
	addr := flag.Int("addr", 0x10, "this node's 7-bit bus address")
	serialPath := flag.String("serial", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", 9600, "serial baud rate")
	i2cPath := flag.String("i2c", "/dev/i2c-1", "i2c device path")
	regSize := flag.Int("regsize", 256, "local register file size, in bytes")
	heartbeatMs := flag.Int64("heartbeat", 1000, "heartbeat period, in milliseconds")
	banner := flag.String("banner", "noded ready\r\n", "startup banner written to the serial console")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	regs := registers.New(*regSize)

	newAppTasks := func(send interfaces.Sender) map[noded.TaskID]task.Task {
		return map[noded.TaskID]task.Task{
			heartbeatID: heartbeat.New(heartbeatID, noded.TaskClock, *heartbeatMs, send, logger),
			memzID:      secretary.NewMEMZ(memzID, noded.TaskBus, constants.SvcMemzRequest, regs, send, logger),
		}
	}

	cfg := noded.Config{
		LocalAddr:  byte(*addr),
		SerialPath: *serialPath,
		SerialBaud: *baud,
		I2CPath:    *i2cPath,
		Logger:     logger,
	}

	node, err := noded.NewNode(cfg, newAppTasks, []noded.TaskID{heartbeatID, memzID})
	if err != nil {
		log.Fatalf("noded: %v", err)
	}

	// Console needs the node's own serial mux as its Writer, which only
	// exists once NewNode has opened the UART, so it's wired in after
	// construction instead of through newAppTasks.
	greeter := console.New(consoleID, noded.TaskSerial, node.Serial(), node, logger, *banner)
	if err := node.AddTask(consoleID, greeter); err != nil {
		log.Fatalf("noded: console: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	node.Start()
	logger.Info("node started", "addr", *addr, "serial", *serialPath, "i2c", *i2cPath)

	<-stop
	logger.Info("stopping node")
	node.Stop()
}
