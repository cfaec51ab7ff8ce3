package loader

import (
	"math"
	"strings"
	"testing"

	"github.com/pthm-cable/microforge/internal/shapes"
)

func TestLoadParsesRecordsAndDerivesFields(t *testing.T) {
	input := "2\n" +
		"1 0.0 0.0 0.0 2.0 1.0 1.0 0.9 0.1 0.2 0.3\n" +
		"2 5.0 5.0 5.0 3.0 3.0 3.0 1.0 0.0 0.0 0.0\n"

	features, err := Load(strings.NewReader(input), shapes.Ellipsoid)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}

	f0 := features[0]
	if f0.ID != 1 || f0.Phase != 1 {
		t.Errorf("unexpected id/phase: %+v", f0)
	}
	if f0.A != 1 {
		t.Errorf("expected normalised A=1, got %v", f0.A)
	}
	if math.Abs(f0.B-0.5) > 1e-9 {
		t.Errorf("expected B=0.5 (1.0/2.0), got %v", f0.B)
	}
	wantVol := 4 * math.Pi * 2.0 * 1.0 * 1.0 / 3
	if math.Abs(f0.Volume-wantVol) > 1e-9 {
		t.Errorf("expected volume %v, got %v", wantVol, f0.Volume)
	}
}

func TestLoadRejectsTruncatedInput(t *testing.T) {
	input := "1\n1 0 0 0 1 1 1\n" // missing omega3/euler fields
	if _, err := Load(strings.NewReader(input), shapes.Ellipsoid); err == nil {
		t.Fatal("expected IOFailure error for truncated record")
	}
}

func TestLoadRejectsNonNumericToken(t *testing.T) {
	input := "1\n1 0 0 0 1 1 1 1 1 1 notanumber\n"
	if _, err := Load(strings.NewReader(input), shapes.Ellipsoid); err == nil {
		t.Fatal("expected IOFailure error for non-numeric token")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	features, err := Load(strings.NewReader("0\n"), shapes.Ellipsoid)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 0 {
		t.Errorf("expected zero features, got %d", len(features))
	}
}
