package dtpg

import (
	"github.com/vlsitest/fanatpg/pkg/fsim"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// DetectOp is called once per test pattern the driver finds, mirroring
// druid's DetectOp functor: the driver doesn't know or care what happens to
// a found pattern, it just calls the chain.
type DetectOp interface {
	Detect(flt *tpgnet.Fault, tv *testvector.TestVector)
}

// DopList dispatches to every DetectOp in order, the Go counterpart of
// druid's DopList (a DetectOp itself, so the driver only ever holds one).
type DopList []DetectOp

func (l DopList) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	for _, d := range l {
		d.Detect(flt, tv)
	}
}

// DopBase marks a fault detected, the minimum bookkeeping every DTPG run
// needs regardless of what else it does with the pattern.
type DopBase struct{}

func NewDopBase() *DopBase { return &DopBase{} }

func (d *DopBase) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	flt.SetStatus(tpgnet.StatusDetected)
}

// DopDummy does nothing, for callers that want a DetectOp chain but no
// actual bookkeeping (e.g. a dry-run count-only mode).
type DopDummy struct{}

func (d *DopDummy) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {}

// DopTvList appends every found pattern to an in-memory list, the Go
// counterpart of druid's DopTvList.
type DopTvList struct {
	TVs []*testvector.TestVector
}

func NewDopTvList() *DopTvList { return &DopTvList{} }

func (d *DopTvList) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	d.TVs = append(d.TVs, tv)
}

// DopDrop runs PPSFP fault simulation against every remaining untested fault
// when a pattern is found, marking and skipping every fault the pattern
// incidentally detects along the way, the same fault-dropping DopDrop
// performs in druid by wiring DtpgMgr::update_det() to Fsim::sppfp's
// callback.
type DopDrop struct {
	fsim   *fsim.Fsim
	faults []*tpgnet.Fault
}

// NewDopDrop builds a drop-on-detect DetectOp. faults is the full
// representative fault list PPSFP batches are drawn from.
func NewDopDrop(f *fsim.Fsim, faults []*tpgnet.Fault) *DopDrop {
	return &DopDrop{fsim: f, faults: faults}
}

func (d *DopDrop) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	d.fsim.SetSkip(flt, true)

	candidates := make([]*tpgnet.Fault, 0, len(d.faults))
	for _, f := range d.faults {
		if f.Status() == tpgnet.StatusUnclassified {
			candidates = append(candidates, f)
		}
	}
	d.fsim.SPPFP(tv, candidates, func(hit *tpgnet.Fault) {
		if hit.Status() == tpgnet.StatusUntestable {
			panic("dtpg: fault simulation detected a fault proven untestable")
		}
		hit.SetStatus(tpgnet.StatusDetected)
		d.fsim.SetSkip(hit, true)
	})
}

// VerifyResult accumulates the outcome of re-simulating every already-found
// pattern against the good machine and, for comparison, against each
// fault's own faulty behaviour, the bookkeeping druid's DopVerifyResult
// holds for a verify-stage Dop.
type VerifyResult struct {
	GoodCount  int
	ErrorCount int
	errorCases []errorCase
}

type errorCase struct {
	Fault *tpgnet.Fault
	TV    *testvector.TestVector
}

// NewVerifyResult returns an empty result accumulator.
func NewVerifyResult() *VerifyResult { return &VerifyResult{} }

// AddGood records one pattern that simulated as expected.
func (r *VerifyResult) AddGood() { r.GoodCount++ }

// AddError records one pattern whose observed behaviour didn't match its
// fault's expected detection.
func (r *VerifyResult) AddError(flt *tpgnet.Fault, tv *testvector.TestVector) {
	r.ErrorCount++
	r.errorCases = append(r.errorCases, errorCase{Fault: flt, TV: tv})
}

// ErrorFault and ErrorTestVector index into the recorded error cases.
func (r *VerifyResult) ErrorFault(i int) *tpgnet.Fault            { return r.errorCases[i].Fault }
func (r *VerifyResult) ErrorTestVector(i int) *testvector.TestVector { return r.errorCases[i].TV }

// DopVerify is a DetectOp used during a verification pass: instead of
// trusting the driver's own SAT result, it re-simulates the pattern through
// fsim and records whether the fault actually drops, the role druid's
// verify-stage Dop plays against DopVerifyResult.
type DopVerify struct {
	fsim   *fsim.Fsim
	result *VerifyResult
}

// NewDopVerify builds a verify DetectOp writing into result.
func NewDopVerify(f *fsim.Fsim, result *VerifyResult) *DopVerify {
	return &DopVerify{fsim: f, result: result}
}

func (d *DopVerify) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	res := d.fsim.PPSFP(tv, []*tpgnet.Fault{flt})
	if res.Detected[flt] {
		d.result.AddGood()
		return
	}
	d.result.AddError(flt, tv)
}
