package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// faultVector pairs a detected fault with the pattern that detects it, the
// unit the sweep/verify subcommands read and write. The file format is one
// line per pattern: "<fault-string> <pi-hex> <ppi-hex>", mirroring the
// teacher's WriteTestVectors in spirit (one pattern per line) but keyed by
// fault string instead of a per-net value map, since spec §6 addresses
// patterns by HEX rather than by per-line assignment.
type faultVector struct {
	Fault string
	TV    *testvector.TestVector
}

// writeFaultVectors writes one line per entry to path.
func writeFaultVectors(path string, entries []faultVector) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		ppiHex := e.TV.PPIHexStr()
		if ppiHex == "" {
			ppiHex = "-"
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", e.Fault, e.TV.HexStr(), ppiHex); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
	}
	return w.Flush()
}

// readFaultVectors parses a file written by writeFaultVectors back into
// (fault, TestVector) pairs, resolving fault strings against net's current
// representative fault list by exact Fault.String() match.
func readFaultVectors(path string, net *tpgnet.TpgNetwork) ([]faultVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening test vector file: %w", err)
	}
	defer f.Close()

	var out []faultVector
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("test vector file line %d: want 3 fields, got %d", lineNo, len(fields))
		}
		if _, ok := findFaultByString(net, fields[0]); !ok {
			return nil, fmt.Errorf("test vector file line %d: fault %q not found in this circuit", lineNo, fields[0])
		}
		nv := testvector.New(piCount(net), ppiCount(net))
		if err := nv.SetFromHex(fields[1]); err != nil {
			return nil, fmt.Errorf("test vector file line %d: %w", lineNo, err)
		}
		if fields[2] != "-" {
			if err := nv.PPISetFromHex(fields[2]); err != nil {
				return nil, fmt.Errorf("test vector file line %d: %w", lineNo, err)
			}
		}
		out = append(out, faultVector{Fault: fields[0], TV: nv})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading test vector file: %w", err)
	}
	return out, nil
}

func piCount(net *tpgnet.TpgNetwork) int  { return len(net.PIs()) }
func ppiCount(net *tpgnet.TpgNetwork) int { return len(net.PPIs()) }

// findFaultByString looks up a representative fault by its String() form,
// the inverse of the encoding writeFaultVectors uses for the Fault column.
// Fault.String()'s SA/TF tag already disambiguates the two fault universes,
// so a sweep file written under one fault_type still verifies correctly
// without needing the original run's config.
func findFaultByString(net *tpgnet.TpgNetwork, s string) (*tpgnet.Fault, bool) {
	for _, flt := range net.RepFaults() {
		if flt.String() == s {
			return flt, true
		}
	}
	for _, flt := range net.RepTransitionFaults() {
		if flt.String() == s {
			return flt, true
		}
	}
	return nil, false
}
