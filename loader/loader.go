// Package loader reads instruction programs from text files.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/tomasim/insts"
)

// Program is a decoded instruction stream in program order.
type Program struct {
	// Path is the file the program was read from, if any.
	Path string
	// Instructions holds one entry per non-blank source line.
	Instructions []*insts.Instruction
	// Lines maps each instruction to its 1-based source line.
	Lines []int
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// Load reads and decodes the program at path.
func Load(path string, decoder *insts.Decoder) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f, decoder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	prog.Path = path

	return prog, nil
}

// Parse decodes one instruction per line from r. Blank and comment-only
// lines are skipped.
func Parse(r io.Reader, decoder *insts.Decoder) (*Program, error) {
	prog := &Program{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := insts.StripComment(scanner.Text())
		if line == "" {
			continue
		}

		inst, err := decoder.Decode(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		prog.Instructions = append(prog.Instructions, inst)
		prog.Lines = append(prog.Lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return prog, nil
}
