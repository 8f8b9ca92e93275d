package dtpg

import (
	"time"

	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// Stats tallies the outcome of a Driver's run over a fault list, the Go
// counterpart of the counters druid's DtpgMgr reports at the end of a run.
type Stats struct {
	Detected   int
	Untestable int
	Aborted    int

	// Cones and CnfGenTime record how many shared cone CNFs were built and
	// how long their construction took, the per-cone build-time bookkeeping
	// spec §4.5 step 1 asks for.
	Cones      int
	CnfGenTime time.Duration
}

// Driver runs the per-fault SAT/extract/justify/detect loop against one
// network, holding the single shared StructEnc every cone is built against
// plus a cache of cone CNFs keyed by root: each FFR's (or MFFC's) CNF is
// built exactly once and every fault inside it is selected by assumption
// literals alone.
type Driver struct {
	Net    *tpgnet.TpgNetwork
	Enc    *structenc.StructEnc
	Cone   structenc.ConeKind
	Policy JustifyPolicy
	Dop    DetectOp

	justifier *Justifier
	cones     map[*tpgnet.Node]*structenc.PropCone
}

// NewDriver builds a driver for net using solver as the shared SAT instance
// and dop as the chain to call on every found pattern.
func NewDriver(net *tpgnet.TpgNetwork, solver satiface.Solver, cone structenc.ConeKind, policy JustifyPolicy, dop DetectOp) *Driver {
	return &Driver{
		Net:       net,
		Enc:       structenc.New(net, solver),
		Cone:      cone,
		Policy:    policy,
		Dop:       dop,
		justifier: NewJustifier(net, policy),
		cones:     make(map[*tpgnet.Node]*structenc.PropCone),
	}
}

// Run generates a test for every representative fault not already marked
// Skip or resolved by a prior run, dispatching every found pattern through
// d.Dop.
func (d *Driver) Run() Stats {
	return d.RunFaults(d.Net.RepFaults())
}

// RunFaults is Run restricted to an explicit fault subset: faults are
// grouped by cone root in first-seen order and, within a group, attempted
// in list (fault-id) order against the group's one shared cone CNF. It is
// also the hook RunParallel uses to hand each worker its own disjoint
// partition (spec §5's "FFR- or MFFC-level DTPG tasks are independent"
// property).
func (d *Driver) RunFaults(faults []*tpgnet.Fault) Stats {
	var stats Stats
	for _, group := range partitionByRoot(faults, d.Cone) {
		var pc *structenc.PropCone
		for _, flt := range group {
			if flt.Skip || flt.Status() != tpgnet.StatusUnclassified {
				continue
			}
			if pc == nil {
				pc = d.coneFor(coneRoot(flt, d.Cone), &stats)
			}
			d.runOne(pc, flt, &stats)
		}
	}
	return stats
}

// coneFor returns the shared cone CNF for root, building and timing it on
// first use. Cones are cached for the driver's lifetime, so repeated
// RunFaults calls never re-assert a cone's clauses into the shared solver.
func (d *Driver) coneFor(root *tpgnet.Node, stats *Stats) *structenc.PropCone {
	if pc, ok := d.cones[root]; ok {
		return pc
	}
	start := time.Now()
	pc := structenc.BuildPropCone(d.Enc, root, d.Cone)
	stats.CnfGenTime += time.Since(start)
	stats.Cones++
	d.cones[root] = pc
	return pc
}

// runOne drives a single fault through its SAT call and, on success,
// through extraction, justification and the DetectOp chain.
func (d *Driver) runOne(pc *structenc.PropCone, flt *tpgnet.Fault, stats *Stats) {
	cond, ok := d.Net.ComputeFfrCond(flt)
	if !ok {
		// No assignment carries the fault effect through its own FFR;
		// untestable without consulting the solver.
		stats.Untestable++
		flt.SetStatus(tpgnet.StatusUntestable)
		return
	}

	status, err := d.Enc.Solver.Solve(pc.FaultAssumptions(flt, cond))
	if err != nil {
		stats.Aborted++
		flt.SetStatus(tpgnet.StatusAborted)
		return
	}

	switch status {
	case satiface.StatusUNSAT:
		stats.Untestable++
		flt.SetStatus(tpgnet.StatusUntestable)
	case satiface.StatusAbort:
		stats.Aborted++
		flt.SetStatus(tpgnet.StatusAborted)
	case satiface.StatusSAT:
		model := d.Enc.Solver.Model()
		assign := append(tpgnet.AssignList{}, cond.Assigns...)
		assign = append(assign, Extract(pc, flt, model)...)
		tv, jerr := d.justifier.Justify(assign)
		if jerr != nil {
			stats.Aborted++
			flt.SetStatus(tpgnet.StatusAborted)
			return
		}
		stats.Detected++
		d.Dop.Detect(flt, tv)
	}
}
