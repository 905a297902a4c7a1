// Package loader parses the adjacency-list graph file format: a header
// line "N M" (vertex count, edge count) followed by N lines, one per
// vertex in id order, each holding zero or more "dest capacity" pairs
// describing that vertex's out-edges. Grounded on the teacher's
// streaming line/field readers (utils.FastFileLines, utils.FastFields,
// utils.ToInt) rather than fmt.Sscan/bufio.Scanner+strconv, the way
// graph/stream-parse.go avoids per-line allocation for large inputs.
package loader

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/rpi-parallel/distmaxflow/utils"
)

// Edge is one out-edge read from the file: a destination vertex id and
// the capacity of that directed edge.
type Edge struct {
	Dest     uint64
	Capacity int32
}

// Graph is the whole file, loaded into memory before partitioning.
type Graph struct {
	NumVertices int
	NumEdges    int
	OutEdges    [][]Edge // len == NumVertices; OutEdges[i] are vertex i's out-edges
}

// Load reads path and parses it into a Graph. Any I/O or format problem
// is a bootstrap error (§7a): the caller is expected to log.Fatal, not
// retry.
func Load(path string) (*Graph, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	file := utils.OpenFile(path)
	defer file.Close()

	var scanner utils.FastFileLines
	scanner.Buf = make([]byte, 1<<20)

	header := scanner.Scan(file)
	if header == nil {
		return nil, fmt.Errorf("loader: empty file %q", path)
	}
	fields := make([]string, 2)
	utils.FastFields(fields, header)
	if fields[0] == "" || fields[1] == "" {
		return nil, fmt.Errorf("loader: malformed header %q", string(header))
	}
	numVertices := int(utils.ToIntStr(fields[0]))
	numEdges := int(utils.ToIntStr(fields[1]))
	if numVertices < 0 {
		return nil, fmt.Errorf("loader: negative vertex count in header %q", string(header))
	}

	g := &Graph{
		NumVertices: numVertices,
		NumEdges:    numEdges,
		OutEdges:    make([][]Edge, numVertices),
	}

	fieldBuf := make([]string, 256)
	for i := 0; i < numVertices; i++ {
		line := scanner.Scan(file)
		if line == nil {
			return nil, fmt.Errorf("loader: file ended after %d of %d vertex lines", i, numVertices)
		}
		if len(line) == 0 {
			continue
		}
		n := countFields(line)
		if n%2 != 0 {
			return nil, fmt.Errorf("loader: line %d has an odd number of tokens, expected dest/capacity pairs", i)
		}
		if n == 0 {
			continue
		}
		if cap(fieldBuf) < n {
			fieldBuf = make([]string, n)
		}
		fieldBuf = fieldBuf[:n]
		utils.FastFields(fieldBuf, line)
		edges := make([]Edge, 0, n/2)
		for f := 0; f < n; f += 2 {
			dest := utils.ToIntStr(fieldBuf[f])
			capVal := utils.ToIntStr(fieldBuf[f+1])
			if int(dest) >= numVertices {
				return nil, fmt.Errorf("loader: line %d references out-of-range vertex %d", i, dest)
			}
			edges = append(edges, Edge{Dest: uint64(dest), Capacity: int32(capVal)})
		}
		g.OutEdges[i] = edges
	}

	log.Debug().Int("vertices", numVertices).Int("declared_edges", numEdges).Msg("loaded graph")
	return g, nil
}

func countFields(line []byte) int {
	n := 0
	inField := false
	for _, b := range line {
		isSpace := b == ' ' || b == '\t'
		if !isSpace && !inField {
			n++
			inField = true
		} else if isSpace {
			inField = false
		}
	}
	return n
}
