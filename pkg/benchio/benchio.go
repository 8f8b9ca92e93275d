// Package benchio reads the ISCAS85/ISCAS89 ".bench" netlist format into a
// tpgnet.NetlistInput via a two-pass line/gate discovery, extended to
// recognize ISCAS89's DFF(...) pseudo-gate for scan flip-flops (ISCAS85
// never needed it, since those benchmarks are purely combinational).
package benchio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

var (
	inputRegex  = regexp.MustCompile(`^INPUT\((\w+)\)$`)
	outputRegex = regexp.MustCompile(`^OUTPUT\((\w+)\)$`)
	gateRegex   = regexp.MustCompile(`^(\w+)\s*=\s*(\w+)\((.+)\)$`)
)

// kindOf maps a bench-format gate keyword to its gatetype.Kind.
func kindOf(name string) (gatetype.Kind, bool) {
	switch strings.ToUpper(name) {
	case "AND":
		return gatetype.KindAnd, true
	case "NAND":
		return gatetype.KindNand, true
	case "OR":
		return gatetype.KindOr, true
	case "NOR":
		return gatetype.KindNor, true
	case "XOR":
		return gatetype.KindXor, true
	case "XNOR":
		return gatetype.KindXnor, true
	case "NOT", "INV":
		return gatetype.KindNot, true
	case "BUF", "BUFF":
		return gatetype.KindBuff, true
	default:
		return gatetype.KindBuff, false
	}
}

// ParseFile opens path and parses it as a .bench netlist, using the
// filename (minus its extension) as the resulting network's name.
func ParseFile(path string, logger zerolog.Logger) (*tpgnet.NetlistInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("benchio: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(f, name, logger)
}

// Parse reads a .bench netlist from r, naming the resulting network name.
//
// Pass one identifies every named line (PI, PO, DFF output, gate output) so
// that pass two, which actually builds LogicNodeSpecs, can reference a
// fanin by name regardless of whether its declaration appears earlier or
// later in the file.
func Parse(r io.Reader, name string, logger zerolog.Logger) (*tpgnet.NetlistInput, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	in := &tpgnet.NetlistInput{Name: name}
	declared := map[string]bool{}
	isOutput := map[string]bool{}
	var outputOrder []string
	isDFFOutput := map[string]bool{}

	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case inputRegex.MatchString(line):
			m := inputRegex.FindStringSubmatch(line)
			lname := m[1]
			if declared[lname] {
				return nil, fmt.Errorf("benchio: line %d: %q redeclared as INPUT", lineNo+1, lname)
			}
			declared[lname] = true
			in.PIs = append(in.PIs, lname)

		case outputRegex.MatchString(line):
			m := outputRegex.FindStringSubmatch(line)
			if !isOutput[m[1]] {
				isOutput[m[1]] = true
				outputOrder = append(outputOrder, m[1])
			}

		case gateRegex.MatchString(line):
			m := gateRegex.FindStringSubmatch(line)
			outName := m[1]
			gateKw := strings.ToUpper(m[2])
			if gateKw == "DFF" {
				isDFFOutput[outName] = true
			}
			declared[outName] = true

		default:
			logger.Warn().Int("line", lineNo+1).Str("text", line).Msg("benchio: unrecognized line, skipping")
		}
	}

	var logic []tpgnet.LogicNodeSpec
	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if inputRegex.MatchString(line) || outputRegex.MatchString(line) {
			continue
		}
		m := gateRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		outName := m[1]
		gateKw := strings.ToUpper(m[2])
		fanins := splitFanins(m[3])

		if gateKw == "DFF" {
			if len(fanins) != 1 {
				return nil, fmt.Errorf("benchio: line %d: DFF %q expects exactly one input, got %d", lineNo+1, outName, len(fanins))
			}
			in.DFFs = append(in.DFFs, tpgnet.DFFSpec{QName: outName, DName: fanins[0]})
			continue
		}

		kind, ok := kindOf(gateKw)
		if !ok {
			return nil, fmt.Errorf("benchio: line %d: unknown gate type %q", lineNo+1, gateKw)
		}
		logic = append(logic, tpgnet.LogicNodeSpec{Name: outName, Kind: kind, FaninIDs: fanins})
	}
	in.Logic = logic

	for _, outName := range outputOrder {
		if isDFFOutput[outName] {
			continue
		}
		in.POs = append(in.POs, outName)
	}

	logger.Debug().
		Int("pis", len(in.PIs)).
		Int("dffs", len(in.DFFs)).
		Int("gates", len(in.Logic)).
		Int("pos", len(in.POs)).
		Msg("benchio: parsed netlist")

	return in, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("benchio: %w", err)
	}
	return lines, nil
}

func splitFanins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
