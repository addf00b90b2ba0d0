// Package parser streams source bytes into an ir.Program, fusing adjacent
// repeated tape-moves and increments as it goes and pairing brackets.
package parser

import (
	"bufio"
	"io"

	"github.com/Urethramancer/bfcc/ir"
)

// tentative maps a source byte to the instruction it contributes, and
// reports whether the byte is syntactically significant. '$' is the
// non-standard debug character; any other byte is a comment and is
// skipped entirely.
func tentative(ch byte) (ir.Instruction, bool) {
	switch ch {
	case '>':
		return ir.Instruction{Kind: ir.TapeM, Value: 1}, true
	case '<':
		return ir.Instruction{Kind: ir.TapeM, Value: -1}, true
	case '+':
		return ir.Instruction{Kind: ir.Incr, Value: 1}, true
	case '-':
		return ir.Instruction{Kind: ir.Incr, Value: -1}, true
	case '.':
		return ir.Instruction{Kind: ir.Write}, true
	case ',':
		return ir.Instruction{Kind: ir.Read}, true
	case '[':
		return ir.Instruction{Kind: ir.JumpC}, true
	case ']':
		return ir.Instruction{Kind: ir.JumpO}, true
	case '$':
		return ir.Instruction{Kind: ir.Debug}, true
	default:
		return ir.Instruction{}, false
	}
}

// Parse reads the entirety of r and lowers it to a Program. It returns
// *ir.ParseError for a mismatched bracket and *ir.IOError for any other
// read failure.
func Parse(r io.Reader) (*ir.Program, error) {
	br := bufio.NewReader(r)

	var code []ir.Instruction
	var source []byte
	var srcToCode []int
	var stack []int // indices into code of open JumpC instructions

	// fuse examines the last emitted instruction against a freshly
	// tentative one; if they fuse, it folds the new value into the last
	// instruction and reports true so the caller skips the push. Fusion
	// never reaches across a bracket: JumpC/JumpO are never TapeM/Incr,
	// so the kind-and-shape check below already stops at a bracket.
	fuse := func(next ir.Instruction) bool {
		if len(code) == 0 {
			return false
		}
		last := &code[len(code)-1]
		switch {
		case last.Kind == ir.TapeM && next.Kind == ir.TapeM:
			last.Value += next.Value
			return true
		case last.Kind == ir.Incr && next.Kind == ir.Incr &&
			len(last.RRef) == 0 && len(next.RRef) == 0 && last.LRef == next.LRef:
			last.Value += next.Value
			return true
		default:
			return false
		}
	}

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			code = append(code, ir.Instruction{Kind: ir.Halt})
			source = append(source, 0)
			srcToCode = append(srcToCode, len(code)-1)
			break
		}
		if err != nil {
			return nil, &ir.IOError{Err: err}
		}

		inst, significant := tentative(b)
		if !significant {
			source = append(source, 0)
			if len(srcToCode) > 0 {
				srcToCode = append(srcToCode, srcToCode[len(srcToCode)-1])
			} else {
				srcToCode = append(srcToCode, -1)
			}
			continue
		}

		if !fuse(inst) {
			code = append(code, inst)
		}
		source = append(source, b)
		srcToCode = append(srcToCode, len(code)-1)

		switch inst.Kind {
		case ir.JumpC:
			stack = append(stack, len(code)-1)
		case ir.JumpO:
			closing := len(code) - 1
			if len(stack) == 0 {
				return nil, &ir.ParseError{Offset: len(source) - 1, Opener: false}
			}
			opening := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			code[opening].Value = int32(closing - opening)
			code[closing].Value = int32(opening - closing)
		}
	}

	if len(stack) != 0 {
		offset := len(source) - 1
		for i, c := range srcToCode {
			if c == stack[len(stack)-1] {
				offset = i
				break
			}
		}
		return nil, &ir.ParseError{Offset: offset, Opener: true}
	}

	return &ir.Program{Code: code, SourceMap: srcToCode, Source: source}, nil
}
