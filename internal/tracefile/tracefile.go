// Package tracefile parses and replays allocation traces: a small textual
// format for driving a heap.Allocator through a scripted sequence of
// allocate/free calls without a full test-driver harness.
//
// Each line is either:
//
//	a <id> <size>   allocate <size> bytes, remember the payload address as <id>
//	f <id>          free the block previously allocated as <id>
//
// Blank lines and lines starting with # are ignored.
package tracefile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/heapline/allocore/heap"
)

// OpKind identifies which allocator call a parsed Op requests.
type OpKind int

const (
	OpAllocate OpKind = iota
	OpFree
)

// Op is one parsed trace line.
type Op struct {
	Kind OpKind
	ID   string
	Size int // meaningful only for OpAllocate
	Line int // 1-based source line, for error messages
}

// Parse reads a trace from r and returns its operations in order.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "a":
			if len(fields) != 3 {
				return nil, fmt.Errorf("tracefile: line %d: want 'a <id> <size>', got %q", lineNo, line)
			}
			size, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("tracefile: line %d: bad size %q: %w", lineNo, fields[2], err)
			}
			ops = append(ops, Op{Kind: OpAllocate, ID: fields[1], Size: size, Line: lineNo})
		case "f":
			if len(fields) != 2 {
				return nil, fmt.Errorf("tracefile: line %d: want 'f <id>', got %q", lineNo, line)
			}
			ops = append(ops, Op{Kind: OpFree, ID: fields[1], Line: lineNo})
		default:
			return nil, fmt.Errorf("tracefile: line %d: unknown op %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tracefile: scan failed: %w", err)
	}
	return ops, nil
}

// Result summarizes a Replay run.
type Result struct {
	Allocations int
	Frees       int
	BytesLive   int
	PeakLive    int
}

// Replay drives an Allocator through ops in order, tracking each id's
// live payload address so a later "f <id>" can find it. It fails fast on
// a trace referencing an unknown or already-freed id, or on any
// allocator error.
func Replay(a *heap.Allocator, ops []Op) (Result, error) {
	type liveBlock struct {
		addr uintptr
		size int
	}
	live := make(map[string]liveBlock)
	var res Result

	for _, op := range ops {
		switch op.Kind {
		case OpAllocate:
			if _, ok := live[op.ID]; ok {
				return res, fmt.Errorf("tracefile: line %d: id %q already live", op.Line, op.ID)
			}
			addr, err := a.Allocate(op.Size)
			if err != nil {
				return res, fmt.Errorf("tracefile: line %d: allocate %d: %w", op.Line, op.Size, err)
			}
			live[op.ID] = liveBlock{addr: addr, size: op.Size}
			res.Allocations++
			res.BytesLive += op.Size
			if res.BytesLive > res.PeakLive {
				res.PeakLive = res.BytesLive
			}
		case OpFree:
			blk, ok := live[op.ID]
			if !ok {
				return res, fmt.Errorf("tracefile: line %d: id %q is not live", op.Line, op.ID)
			}
			a.Free(blk.addr)
			delete(live, op.ID)
			res.Frees++
			res.BytesLive -= blk.size
		}
	}
	return res, nil
}
