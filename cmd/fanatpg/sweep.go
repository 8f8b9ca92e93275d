package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vlsitest/fanatpg/internal/metrics"
	"github.com/vlsitest/fanatpg/pkg/dtpg"
	"github.com/vlsitest/fanatpg/pkg/fsim"
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// labelingDop wraps another DetectOp and additionally records every
// (fault, pattern) pair it's asked to detect, the bookkeeping sweep needs to
// write a fault-addressed output file (dtpg.DopTvList alone loses the fault
// association once vectors are merged into a single slice).
type labelingDop struct {
	entries []faultVector
}

func (d *labelingDop) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	d.entries = append(d.entries, faultVector{Fault: flt.String(), TV: tv})
}

// mergingDop lets a RunParallel worker record into its own unshared
// labelingDop and flush it into the run-wide one under a mutex, so the
// output file still gets every pattern without making labelingDop itself
// safe for concurrent use from every worker directly.
type mergingDop struct {
	mu  *sync.Mutex
	dst *labelingDop
	src *labelingDop
}

func (d mergingDop) Detect(flt *tpgnet.Fault, tv *testvector.TestVector) {
	d.src.Detect(flt, tv)
	d.mu.Lock()
	d.dst.entries = append(d.dst.entries, d.src.entries[len(d.src.entries)-1])
	d.mu.Unlock()
}

func newSweepCmd(gf *globalFlags) *cobra.Command {
	var outputFile string
	var drop bool
	var parallel bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "generate test patterns for every fault in the circuit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			logger, err := gf.buildLogger()
			if err != nil {
				return err
			}
			net, err := gf.loadNetwork(logger)
			if err != nil {
				return err
			}

			var collectors *metrics.Collectors
			if cfg.MetricsAddr != "" {
				// metrics.Handler() serves promhttp.Handler()'s default
				// gatherer, so collectors must register against
				// prometheus.DefaultRegisterer to actually show up on it.
				collectors = metrics.NewCollectors(prometheus.DefaultRegisterer)
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Msg("metrics server exited")
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
			}

			faults := net.RepFaultsOfKind(cfg.FaultKind())
			logger.Algorithm(fmt.Sprintf("sweeping %d representative faults (cone=%s, justifier=%s, fault_type=%s, parallel=%v)",
				len(faults), coneName(cfg.ConeKind()), cfg.Justifier, cfg.FaultType, parallel))

			start := time.Now()
			var stats dtpg.Stats
			var cnfSize int
			var haveCnfSize bool
			labeler := &labelingDop{}
			if parallel {
				// Each worker gets its own solver and its own labelingDop
				// behind a mutex, per spec §5: "a parallel variant needs
				// one Fsim per worker" generalizes to one encoder/solver
				// per worker too; only the labeler's slice is genuinely
				// shared, and only for the final output file.
				var mu sync.Mutex
				newDop := func() dtpg.DetectOp {
					local := &labelingDop{}
					return dtpg.DopList{dtpg.NewDopBase(), mergingDop{mu: &mu, dst: labeler, src: local}}
				}
				var err error
				stats, err = dtpg.RunParallelFaults(context.Background(), net, faults, func() satiface.Solver { return newSolver(cfg) },
					cfg.ConeKind(), cfg.JustifyPolicy(), newDop)
				if err != nil {
					return err
				}
			} else {
				solver := newSolver(cfg)
				var dop dtpg.DetectOp = dtpg.DopList{dtpg.NewDopBase(), labeler}
				// Fault dropping runs a single-frame PPSFP pass (see
				// pkg/fsim); it isn't meaningful for transition-delay faults
				// (no two-frame fault simulator exists yet, see DESIGN.md),
				// so --drop is silently limited to stuck-at sweeps.
				if drop && cfg.FaultKind() == tpgnet.FaultStuckAt {
					fs := fsim.New(net, 64)
					dropOp := dtpg.NewDopDrop(fs, faults)
					dop = dtpg.DopList{dtpg.NewDopBase(), labeler, dropOp}
				}
				driver := dtpg.NewDriver(net, solver, cfg.ConeKind(), cfg.JustifyPolicy(), dop)
				stats = driver.RunFaults(faults)
				if n, ok := driver.Enc.ActualCnfSize(); ok {
					cnfSize, haveCnfSize = n, true
				}
			}
			elapsed := time.Since(start)

			if err := writeFaultVectors(outputFile, labeler.entries); err != nil {
				return err
			}

			if collectors != nil {
				collectors.DetCount.Add(float64(stats.Detected))
				collectors.UntestCount.Add(float64(stats.Untestable))
				collectors.AbortCount.Add(float64(stats.Aborted))
				collectors.CnfGenTime.Observe(stats.CnfGenTime.Seconds())
				if haveCnfSize {
					collectors.CnfClauses.Observe(float64(cnfSize))
				}
			}

			logger.Algorithm(fmt.Sprintf("sweep complete in %s: detected=%d untestable=%d aborted=%d, %d patterns written to %s",
				elapsed, stats.Detected, stats.Untestable, stats.Aborted, len(labeler.entries), outputFile))
			fmt.Printf("detected=%d untestable=%d aborted=%d patterns=%d\n",
				stats.Detected, stats.Untestable, stats.Aborted, len(labeler.entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&outputFile, "output", "tests.txt", "output file for detected test patterns")
	cmd.Flags().BoolVar(&drop, "drop", true, "drop incidentally-detected faults via PPSFP after each hit")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run one FFR/MFFC partition per worker (disables --drop)")
	return cmd
}
