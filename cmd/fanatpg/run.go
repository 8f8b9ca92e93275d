package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vlsitest/fanatpg/pkg/dtpg"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

func newRunCmd(gf *globalFlags) *cobra.Command {
	var faultStr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "generate a test pattern for one fault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if faultStr == "" {
				return fmt.Errorf("--fault is required (e.g. --fault net42/1)")
			}
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

			lineName, valStr, ok := strings.Cut(faultStr, "/")
			if !ok {
				return fmt.Errorf("invalid fault format %q (expected net/value)", faultStr)
			}
			val, err := strconv.Atoi(valStr)
			if err != nil || (val != 0 && val != 1) {
				return fmt.Errorf("invalid fault value %q (expected 0 or 1)", valStr)
			}
			faultVal := tpgnet.FaultVal0
			if val == 1 {
				faultVal = tpgnet.FaultVal1
			}

			// Resolve the named stem fault through the collapsed fault list:
			// the user addresses any line, the driver runs its
			// representative.
			faults := net.RepFaultsOfKind(cfg.FaultKind())
			var target *tpgnet.Fault
			for _, flt := range net.AllFaultsOfKind(cfg.FaultKind()) {
				if flt.Node.Name == lineName && flt.Val == faultVal && !flt.IsBranch() {
					target = flt.Representative()
					break
				}
			}
			if target == nil {
				return fmt.Errorf("no stem fault %s/%d (check the line exists and drives an observable output)", lineName, val)
			}
			for _, flt := range faults {
				if flt != target {
					flt.Skip = true
				}
			}

			solver := newSolver(cfg)
			recorder := dtpg.NewDopTvList()
			dop := dtpg.DopList{dtpg.NewDopBase(), recorder}
			driver := dtpg.NewDriver(net, solver, cfg.ConeKind(), cfg.JustifyPolicy(), dop)

			logger.Algorithm(fmt.Sprintf("generating a pattern for %s", target.String()))
			stats := driver.RunFaults(faults)

			switch target.Status() {
			case tpgnet.StatusDetected:
				tv := recorder.TVs[0]
				fmt.Printf("%s DETECTED pi=%s ppi=%s\n", target.String(), tv.HexStr(), tv.PPIHexStr())
			case tpgnet.StatusUntestable:
				fmt.Printf("%s UNTESTABLE\n", target.String())
			case tpgnet.StatusAborted:
				fmt.Printf("%s ABORTED (conflict limit reached)\n", target.String())
			}
			logger.Algorithm(fmt.Sprintf("done: detected=%d untestable=%d aborted=%d", stats.Detected, stats.Untestable, stats.Aborted))
			return nil
		},
	}

	cmd.Flags().StringVar(&faultStr, "fault", "", "fault to test, e.g. net42/1 for net42 stuck-at-1")
	return cmd
}
