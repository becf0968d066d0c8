package engine

import (
	"fmt"

	"alma.local/shatb/padding"
	"github.com/sirupsen/logrus"
)

// Fault selects a deliberate misbehaviour of the software engine, used to
// check that the testbench reports failures.
type Fault int

const (
	FaultNone    Fault = iota
	FaultStall         // accept the block but never raise hash_valid
	FaultCorrupt       // flip the lowest bit of the produced digest
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultStall:
		return "stall"
	case FaultCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("Fault(%d)", int(f))
	}
}

// ParseFault maps a config name to a Fault.
func ParseFault(name string) (Fault, error) {
	switch name {
	case "", "none":
		return FaultNone, nil
	case "stall":
		return FaultStall, nil
	case "corrupt":
		return FaultCorrupt, nil
	default:
		return FaultNone, fmt.Errorf("engine: unknown fault %q", name)
	}
}

type state int

const (
	stateIdle state = iota
	stateBusy
	stateDone
)

// Soft is a cycle-level software model of the hash engine. A block is
// latched on the rising edge where block_valid is high, one compression
// round retires every CyclesPerRound cycles, and hash_valid rises once the
// last round completes. hash_valid stays high until reset or until the next
// block is accepted. block_valid is ignored while a block is in flight.
type Soft struct {
	cyclesPerRound int
	fault          Fault
	log            logrus.FieldLogger

	state state
	w     [Rounds]uint32
	v     [8]uint32
	round int
	wait  int
	out   Outputs
}

// Option configures a Soft engine.
type Option func(*Soft)

// WithCyclesPerRound sets how many clock cycles each round takes.
func WithCyclesPerRound(n int) Option {
	return func(s *Soft) {
		if n > 0 {
			s.cyclesPerRound = n
		}
	}
}

// WithFault injects a fault.
func WithFault(f Fault) Option {
	return func(s *Soft) { s.fault = f }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Soft) { s.log = l }
}

// NewSoft returns an engine in its pre-reset state.
func NewSoft(opts ...Option) *Soft {
	s := &Soft{
		cyclesPerRound: 1,
		log:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latency is the number of cycles from the accepting edge to the edge
// that raises hash_valid.
func (s *Soft) Latency() int {
	return Rounds * s.cyclesPerRound
}

// Posedge implements Engine.
func (s *Soft) Posedge(in Inputs) Outputs {
	if !in.ResetN {
		s.state = stateIdle
		s.round, s.wait = 0, 0
		s.out = Outputs{}
		return s.out
	}

	switch s.state {
	case stateIdle, stateDone:
		if in.BlockValid {
			s.w = schedule(&in.BlockData)
			s.v = iv
			s.round, s.wait = 0, 0
			s.out.HashValid = false
			s.state = stateBusy
			s.log.WithField("block", in.BlockData.Hex()).Debug("engine accepted block")
		}
	case stateBusy:
		if s.fault == FaultStall {
			return s.out
		}
		s.wait++
		if s.wait < s.cyclesPerRound {
			return s.out
		}
		s.wait = 0
		round(&s.v, s.round, s.w[s.round])
		s.round++
		if s.round == Rounds {
			d := finalize(&s.v)
			if s.fault == FaultCorrupt {
				d[len(d)-1] ^= 0x01
			}
			s.out = Outputs{HashValid: true, HashData: d}
			s.state = stateDone
			s.log.WithField("digest", d.Hex()).Debug("engine produced digest")
		}
	}
	return s.out
}

var _ Engine = (*Soft)(nil)

// Reference returns what a standards-compliant engine produces for blk,
// without going through the clocked model.
func Reference(blk padding.Block) Outputs {
	return Outputs{HashValid: true, HashData: Compress(blk)}
}
