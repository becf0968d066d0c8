package fuzzer

import (
	"context"
	"encoding/hex"
	"math/rand"

	"alma.local/shatb/domains"
	"alma.local/shatb/feedback"
	"alma.local/shatb/padding"
	"alma.local/shatb/tracer"
	"github.com/sirupsen/logrus"
)

// Campaign feeds random single-block messages to a Fuzzer.
type Campaign struct {
	Fuzzer        Fuzzer
	Rand          *rand.Rand
	Iterations    int
	StopOnFailure bool
	Log           logrus.FieldLogger

	// Domain, when set, draws messages bucket by bucket instead of uniformly.
	Domain *domains.Domain
}

// Report summarizes a campaign.
type Report struct {
	Signature    feedback.RuntimeSignature
	Executed     int
	Coverage     float64
	FirstFailure []byte // message of the first failing run, nil if none
	// FirstFailureTrace is the signal trace of that run, when tracing is on.
	FirstFailureTrace []tracer.TraceEntry
}

// RandomMessage returns a message of 0 to padding.MaxMessageSize random bytes.
func RandomMessage(r *rand.Rand) []byte {
	msg := make([]byte, r.Intn(padding.MaxMessageSize+1))
	r.Read(msg)
	return msg
}

func (c *Campaign) next() ([]byte, error) {
	if c.Domain == nil {
		return RandomMessage(c.Rand), nil
	}
	return domains.Generate(c.Rand, *c.Domain)
}

// Run executes the campaign until Iterations messages ran, ctx ends, or a
// failure is seen with StopOnFailure set.
func (c *Campaign) Run(ctx context.Context) (Report, error) {
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	rep := Report{Signature: feedback.NewRuntimeSignature()}
	for i := 0; i < c.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			rep.Coverage = c.Fuzzer.TotalCoverage()
			return rep, err
		}
		msg, err := c.next()
		if err != nil {
			rep.Coverage = c.Fuzzer.TotalCoverage()
			return rep, err
		}
		sig, bug, newCov, trace := c.Fuzzer.Execute(ctx, msg)
		rep.Signature.Merge(sig)
		rep.Executed++

		if newCov {
			log.WithFields(logrus.Fields{
				"iteration": i,
				"length":    len(msg),
				"coverage":  c.Fuzzer.TotalCoverage(),
			}).Debug("new message length covered")
		}
		if bug {
			log.WithFields(logrus.Fields{
				"iteration": i,
				"message":   hex.EncodeToString(msg),
				"kinds":     sig.BugKinds,
			}).Warn("BUG_FOUND")
			if rep.FirstFailure == nil {
				rep.FirstFailure = msg
				rep.FirstFailureTrace = trace
			}
			if c.StopOnFailure {
				break
			}
		}
	}
	rep.Coverage = c.Fuzzer.TotalCoverage()
	return rep, nil
}
