package noded

import (
	"fmt"

	"github.com/meshwire/noded/internal/bus"
	"github.com/meshwire/noded/internal/clock"
	"github.com/meshwire/noded/internal/interfaces"
	"github.com/meshwire/noded/internal/logging"
	"github.com/meshwire/noded/internal/mq"
	"github.com/meshwire/noded/internal/reactor"
	"github.com/meshwire/noded/internal/serial"
	"github.com/meshwire/noded/internal/sysinit"
	"github.com/meshwire/noded/internal/task"
)

// Kernel service TaskIDs every node assigns itself (spec §6): a node's
// own application tasks are addressed starting at FirstAppTask so they
// never collide with these.
const (
	TaskClock  TaskID = 1
	TaskBus    TaskID = 2
	TaskSerial TaskID = 3

	FirstAppTask TaskID = 10
)

// Config describes one node's hardware and bus address (spec §6).
type Config struct {
	// LocalAddr is this node's 7-bit address on the bus.
	LocalAddr byte

	SerialPath string
	SerialBaud int
	I2CPath    string

	Logger  interfaces.Logger
	Metrics *Metrics
}

// Node wires the scheduler, clock, bus driver and serial mux described
// by spec.md §0/§9 into one running process — one reactor goroutine,
// one UART read-loop goroutine, one scheduler goroutine, communicating
// only through the message fabric. Grounded on the teacher's
// Device/CreateAndServe lifecycle in backend.go, generalized from
// "attach a ublk block device to the kernel" to "bring up this node's
// message fabric": open hardware first (sysinit.Configure), build the
// dispatch table, run the INIT cascade, only then start serving.
type Node struct {
	cfg     Config
	log     interfaces.Logger
	metrics *Metrics

	hw   *sysinit.Hardware
	ring reactor.Ring

	queue *mq.Queue
	sched *mq.Scheduler

	clock  *clock.Clock
	bus    *bus.Driver
	serial *serial.Mux

	tasks     map[TaskID]task.Task
	initTable []TaskID
}

// NewNode builds the kernel services and the application tasks
// newAppTasks returns into one dispatch table, opens cfg's hardware,
// and runs the INIT cascade (kernel services first, in dependency
// order, then the new tasks in appInitOrder). newAppTasks receives the
// node's Scheduler as an interfaces.Sender, since that's the earliest
// point at which anything able to send a message exists; it may be nil
// if there are no application tasks. It returns a Node ready for
// Start; no goroutine is running yet.
func NewNode(cfg Config, newAppTasks func(send interfaces.Sender) map[TaskID]task.Task, appInitOrder []TaskID) (*Node, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	// tasks is shared by reference with the Scheduler below: entries are
	// still being added after NewScheduler returns (the clock, bus and
	// serial mux all need the Scheduler itself as their Sender, so they
	// can only be built once it exists), and a Go map is a reference
	// type, so the Scheduler sees every later insert without needing a
	// second wiring pass.
	tasks := make(map[TaskID]task.Task)
	queue := mq.NewQueue()
	sched := mq.NewScheduler(queue, tasks, metrics, log)

	var appTasks map[TaskID]task.Task
	if newAppTasks != nil {
		appTasks = newAppTasks(sched)
	}
	for id := range appTasks {
		if id == TaskClock || id == TaskBus || id == TaskSerial {
			return nil, fmt.Errorf("node: application task %d collides with a kernel service TaskID", id)
		}
	}

	hw, err := sysinit.Configure(sysinit.HardwareConfig{
		SerialPath: cfg.SerialPath,
		SerialBaud: cfg.SerialBaud,
		I2CPath:    cfg.I2CPath,
	})
	if err != nil {
		return nil, err
	}

	ring, err := reactor.New(reactor.DefaultConfig)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("node: reactor: %w", err)
	}

	clk := clock.New(TaskClock, reactor.NewTimerCounter(ring), sched)
	tasks[TaskClock] = clk

	transport := bus.Transport(hw.I2C)
	busDriver := bus.New(TaskBus, TaskClock, cfg.LocalAddr, transport, sched, log, metrics)
	tasks[TaskBus] = busDriver

	mux := serial.New(TaskSerial, hw.UART, sched, log)
	tasks[TaskSerial] = mux

	for id, t := range appTasks {
		tasks[id] = t
	}

	initTable := append([]TaskID{TaskClock, TaskBus, TaskSerial}, appInitOrder...)
	if err := sysinit.Cascade(sched, tasks, initTable); err != nil {
		hw.Close()
		ring.Close()
		return nil, err
	}

	return &Node{
		cfg: cfg, log: log, metrics: metrics,
		hw: hw, ring: ring,
		queue: queue, sched: sched,
		clock: clk, bus: busDriver, serial: mux,
		tasks: tasks, initTable: initTable,
	}, nil
}

// Start launches the node's three goroutines — the reactor's
// completion loop, the UART read loop, and the scheduler's
// dispatch_forever — and returns immediately. Matches spec §9's "one
// process context": Start never itself calls into task logic.
func (n *Node) Start() {
	go n.ring.Run()
	go serial.ReadLoop(n.hw.UART, n.serial)
	go n.sched.Run()
}

// Stop halts the scheduler's dispatch loop, closes the reactor, and
// releases the node's hardware. It does not wait for in-flight
// transactions to settle — matching spec's Non-goals around graceful
// shutdown, which the kernel itself never promises.
func (n *Node) Stop() {
	n.sched.Stop()
	n.ring.Close()
	n.hw.Close()
}

// Send implements interfaces.Sender, letting a node's own startup code
// (cmd/noded/main.go) post the first message into a freshly built node
// without reaching into its Scheduler field directly.
func (n *Node) Send(msg Message) { n.sched.Send(msg) }

// Metrics returns the node's metrics, for a status endpoint or CLI flag.
func (n *Node) Metrics() *Metrics { return n.metrics }

// Serial returns the node's serial mux, so a caller can hand it to a
// Console task as its output Writer. The mux itself is only available
// once NewNode has opened the UART, so tasks that need it (unlike
// appTasks, which are wired before the INIT cascade) are added
// afterward with AddTask.
func (n *Node) Serial() *serial.Mux { return n.serial }

// AddTask registers t under id and runs it through the INIT cascade on
// its own, for a task that needs a piece of the Node's own plumbing
// (such as Serial) to construct and so cannot be an appTask passed
// into NewNode. tasks is shared by reference with the Scheduler, so
// this is visible to dispatch immediately.
func (n *Node) AddTask(id TaskID, t task.Task) error {
	if id == TaskClock || id == TaskBus || id == TaskSerial {
		return fmt.Errorf("node: task %d collides with a kernel service TaskID", id)
	}
	n.tasks[id] = t
	return sysinit.Cascade(n.sched, n.tasks, []TaskID{id})
}
