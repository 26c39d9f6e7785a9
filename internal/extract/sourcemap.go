package extract

import (
	"encoding/json"
	"strings"
)

// rawSourceMap is the subset of the source-map v3 schema esbuild emits
// that the AST strategy needs to translate positions in esbuild's
// transformed output back to byte offsets in the original host file.
type rawSourceMap struct {
	Version  int      `json:"version"`
	Sources  []string `json:"sources"`
	Mappings string   `json:"mappings"`
}

// mapping is one decoded VLQ segment: a position in the generated output
// and the position in the original source it corresponds to.
type mapping struct {
	genLine, genCol int
	srcLine, srcCol int
}

// positionMapper translates a byte offset in esbuild's generated code into
// a byte offset in the original host file, using the decoded source map
// plus a line-start index built from the original content.
type positionMapper struct {
	mappings    []mapping // sorted by (genLine, genCol)
	genLineIdx  []int     // byte offset of the start of each line in generated code
	origLineIdx []int     // byte offset of the start of each line in original code
}

func newPositionMapper(sourceMapJSON string, generatedCode, originalCode []byte) (*positionMapper, error) {
	var raw rawSourceMap
	if err := json.Unmarshal([]byte(sourceMapJSON), &raw); err != nil {
		return nil, err
	}

	decoded, err := decodeMappings(raw.Mappings)
	if err != nil {
		return nil, err
	}

	return &positionMapper{
		mappings:    decoded,
		genLineIdx:  lineStarts(generatedCode),
		origLineIdx: lineStarts(originalCode),
	}, nil
}

func lineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func offsetToLineCol(idx []int, offset int) (line, col int) {
	line = 0
	for i := 1; i < len(idx); i++ {
		if idx[i] > offset {
			break
		}
		line = i
	}
	col = offset - idx[line]
	return line, col
}

func lineColToOffset(idx []int, line, col int) int {
	if line < 0 {
		line = 0
	}
	if line >= len(idx) {
		line = len(idx) - 1
	}
	return idx[line] + col
}

// Translate maps a byte offset in the generated code to the nearest byte
// offset at or before it in the original file.
func (m *positionMapper) Translate(generatedOffset int) int {
	if len(m.mappings) == 0 {
		return generatedOffset
	}

	genLine, genCol := offsetToLineCol(m.genLineIdx, generatedOffset)

	best := m.mappings[0]
	for _, seg := range m.mappings {
		if seg.genLine > genLine || (seg.genLine == genLine && seg.genCol > genCol) {
			break
		}
		best = seg
	}

	deltaCol := 0
	if best.genLine == genLine {
		deltaCol = genCol - best.genCol
	}

	return lineColToOffset(m.origLineIdx, best.srcLine, best.srcCol+deltaCol)
}

// decodeMappings decodes the "mappings" VLQ field of a source-map v3
// payload for a single source file (esbuild emits exactly one source per
// transform here), returning absolute (not delta) positions.
func decodeMappings(s string) ([]mapping, error) {
	var out []mapping

	genLine := 0
	genCol, srcLine, srcCol := 0, 0, 0

	for _, lineStr := range strings.Split(s, ";") {
		genCol = 0
		if lineStr != "" {
			for _, seg := range strings.Split(lineStr, ",") {
				if seg == "" {
					continue
				}
				vals, err := decodeVLQSegment(seg)
				if err != nil {
					return nil, err
				}

				genCol += vals[0]
				if len(vals) > 1 {
					srcLine += vals[2]
					srcCol += vals[3]
				}

				out = append(out, mapping{
					genLine: genLine, genCol: genCol,
					srcLine: srcLine, srcCol: srcCol,
				})
			}
		}
		genLine++
	}

	return out, nil
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Decode = func() [256]int {
	var m [256]int
	for i := range m {
		m[i] = -1
	}
	for i, c := range base64Chars {
		m[c] = i
	}
	return m
}()

// decodeVLQSegment decodes one comma-separated VLQ group into its
// constituent signed integers (generatedColumn, sourceIndex, sourceLine,
// sourceColumn[, nameIndex]).
func decodeVLQSegment(seg string) ([]int, error) {
	var result []int
	value := 0
	shift := 0
	started := false

	for i := 0; i < len(seg); i++ {
		digit := base64Decode[seg[i]]
		if digit < 0 {
			continue
		}
		started = true
		continuation := digit & 32
		digit &= 31
		value += digit << uint(shift)

		if continuation != 0 {
			shift += 5
			continue
		}

		negate := value&1 == 1
		value >>= 1
		if negate {
			value = -value
		}
		result = append(result, value)
		value, shift = 0, 0
		started = false
	}

	if started {
		// malformed trailing continuation bit; ignore rather than fail
		// the whole run, matching the non-fatal-parse-error posture the
		// rest of the extractor takes.
	}

	return result, nil
}
