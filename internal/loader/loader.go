// Package loader parses the feature-file text format (spec.md 4.8, 6): an
// alternative path to generation that reads pre-placed features directly,
// skipping optimisation entirely. Grounded on the teacher's plain-text
// save-format readers (telemetry/output.go) for the scan-then-parse idiom.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/shapes"
)

// ErrIOFailure reports an unparseable feature file (spec.md 7).
var ErrIOFailure = fmt.Errorf("loader: unparseable feature file")

// Load parses r per spec.md 6's feature-file format: first token is the
// integer feature count N, followed by N records of
// "phase cx cy cz aA aB aC omega3 phi1 PHI phi2". Derived fields (volume,
// equivalent diameter, normalised axis lengths) follow spec.md 4.8.
func Load(r io.Reader, shapeClass shapes.Class) ([]*feature.Feature, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	tok := newTokenizer(sc)

	n, err := tok.nextInt()
	if err != nil {
		return nil, fmt.Errorf("%w: reading feature count: %v", ErrIOFailure, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative feature count %d", ErrIOFailure, n)
	}

	features := make([]*feature.Feature, 0, n)
	for i := 0; i < n; i++ {
		rec, err := tok.nextRecord(11)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrIOFailure, i, err)
		}

		phaseIdx := int32(rec[0])
		cx, cy, cz := rec[1], rec[2], rec[3]
		aA, aB, aC := rec[4], rec[5], rec[6]
		omega3 := rec[7]
		phi1, phi, phi2 := rec[8], rec[9], rec[10]

		volume := 4 * math.Pi * aA * aB * aC / 3
		equivDia := math.Cbrt(6 * volume / math.Pi)

		a := aA
		if a <= 0 {
			return nil, fmt.Errorf("%w: record %d: non-positive aA", ErrIOFailure, i)
		}

		features = append(features, &feature.Feature{
			ID:              int32(i + 1),
			Phase:           phaseIdx,
			Volume:          volume,
			EquivDiameter:   equivDia,
			A:               1,
			B:               aB / a,
			C:               aC / a,
			Omega3:          omega3,
			Phi1:            phi1,
			Phi:             phi,
			Phi2:            phi2,
			ShapeClass:      shapeClass,
			CentroidX:       cx,
			CentroidY:       cy,
			CentroidZ:       cz,
		})
	}
	return features, nil
}

// tokenizer reads whitespace-separated numeric tokens across lines.
type tokenizer struct {
	sc     *bufio.Scanner
	fields []string
}

func newTokenizer(sc *bufio.Scanner) *tokenizer {
	sc.Split(bufio.ScanWords)
	return &tokenizer{sc: sc}
}

func (t *tokenizer) next() (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(t.sc.Text()), nil
}

func (t *tokenizer) nextInt() (int, error) {
	s, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (t *tokenizer) nextRecord(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s, err := t.next()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d (%q): %w", i, s, err)
		}
		out[i] = v
	}
	return out, nil
}
