package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vlsitest/fanatpg/pkg/dtpg"
	"github.com/vlsitest/fanatpg/pkg/fsim"
)

func newVerifyCmd(gf *globalFlags) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "fault-simulate a sweep's test patterns and confirm each detects its target fault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputFile == "" {
				return fmt.Errorf("--input is required (a file written by 'fanatpg sweep --output ...')")
			}
			logger, err := gf.buildLogger()
			if err != nil {
				return err
			}
			net, err := gf.loadNetwork(logger)
			if err != nil {
				return err
			}

			entries, err := readFaultVectors(inputFile, net)
			if err != nil {
				return err
			}

			fs := fsim.New(net, 64)
			result := dtpg.NewVerifyResult()
			verifier := dtpg.NewDopVerify(fs, result)

			for _, e := range entries {
				flt, ok := findFaultByString(net, e.Fault)
				if !ok {
					return fmt.Errorf("fault %q from %s no longer exists in this circuit", e.Fault, inputFile)
				}
				verifier.Detect(flt, e.TV)
			}

			logger.Algorithm(fmt.Sprintf("verified %d patterns: good=%d error=%d", len(entries), result.GoodCount, result.ErrorCount))
			fmt.Printf("good=%d error=%d total=%d\n", result.GoodCount, result.ErrorCount, len(entries))
			if result.ErrorCount > 0 {
				for i := 0; i < result.ErrorCount; i++ {
					fmt.Printf("  MISMATCH: %s is not detected by its recorded pattern\n", result.ErrorFault(i).String())
				}
				return fmt.Errorf("%d of %d patterns failed to detect their target fault", result.ErrorCount, len(entries))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFile, "input", "", "test vector file written by 'fanatpg sweep'")
	return cmd
}
