package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/retroenv/retrogolib/log"

	"github.com/calderon/vip8"
)

// Debugger streams per-cycle machine state over a websocket. Creating
// one pauses the CPU; the peer drives it with the control endpoints.
type Debugger struct {
	Cpu           *vip8.Cpu
	CurrentOpCode uint16

	// SendEvery throttles events to one per n cycles
	SendEvery uint

	logger *log.Logger
	send   chan debugEvent
}

// debugEvent is one cycle's worth of machine state.
type debugEvent struct {
	OpCode uint16   `json:"opcode"`
	Asm    string   `json:"asm"`
	Pc     uint16   `json:"pc"`
	V      [16]byte `json:"v"`
	I      uint16   `json:"i"`
	Sp     byte     `json:"sp"`
	Stack  []uint16 `json:"stack"`
	Dt     byte     `json:"dt"`
	St     byte     `json:"st"`
	Cycles uint     `json:"cycles"`
}

// NewDebugger registers the hooks and pauses the cpu
func NewDebugger(cpu *vip8.Cpu, logger *log.Logger) *Debugger {
	deb := Debugger{
		Cpu:           cpu,
		CurrentOpCode: 0,
		SendEvery:     1,
		logger:        logger,
		send:          make(chan debugEvent, 16),
	}

	cpu.AddBeforeCycleHook(deb.beforeCycle)
	cpu.AddAfterCycleHook(deb.afterCycle)

	cpu.Stop()

	return &deb
}

// Attach registers the debugger endpoints on mux
func (d *Debugger) Attach(mux *http.ServeMux) {
	mux.HandleFunc("/debugger", d.handleEvents)
	mux.HandleFunc("/debugger/step", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Cpu.SingleFrame(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func (d *Debugger) handleEvents(w http.ResponseWriter, r *http.Request) {
	d.logger.Info("debugger connected")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Error("websocket upgrade failed",
			log.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for {
		select {
		case ev := <-d.send:
			payload, err := json.Marshal(ev)
			if err != nil {
				d.logger.Error("encoding debugger event",
					log.String("error", err.Error()))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				d.logger.Info("debugger disconnected")
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

func (d *Debugger) beforeCycle(cpu *vip8.Cpu) {
	if op, err := cpu.Memory.ReadWord(cpu.Pc); err == nil {
		d.CurrentOpCode = op
	}
}

func (d *Debugger) afterCycle(cpu *vip8.Cpu) {
	if d.SendEvery == 0 || cpu.Cycles()%d.SendEvery != 0 {
		return
	}

	ev := debugEvent{
		OpCode: d.CurrentOpCode,
		Asm:    vip8.Disassemble(d.CurrentOpCode),
		Pc:     cpu.Pc,
		V:      cpu.V,
		I:      cpu.I,
		Sp:     cpu.Sp,
		Stack:  append([]uint16(nil), cpu.Stack[:cpu.Sp]...),
		Dt:     cpu.Dt,
		St:     cpu.St,
		Cycles: cpu.Cycles(),
	}

	// Drop the event when no debugger client is draining the channel
	select {
	case d.send <- ev:
	default:
	}
}
