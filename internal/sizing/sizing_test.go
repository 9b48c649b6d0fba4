package sizing

import (
	"errors"
	"math"
	"testing"
)

func TestTable_Monotonic(t *testing.T) {
	table := Table()
	if len(table) != 21 {
		t.Fatalf("expected 21 rows, got %d", len(table))
	}
	for i := 1; i < len(table); i++ {
		prev, cur := table[i-1], table[i]
		if cur.DiameterMM <= prev.DiameterMM {
			t.Errorf("diameter not ascending at US %v: %v <= %v", cur.US, cur.DiameterMM, prev.DiameterMM)
		}
		if cur.CircumferenceMM <= prev.CircumferenceMM {
			t.Errorf("circumference not ascending at US %v", cur.US)
		}
		if cur.US-prev.US != 0.5 {
			t.Errorf("expected half-size steps, got %v -> %v", prev.US, cur.US)
		}
	}
}

func TestTable_ReturnsCopy(t *testing.T) {
	table := Table()
	table[0].DiameterMM = 99

	if Table()[0].DiameterMM != 14.0 {
		t.Error("mutating the returned table changed the chart")
	}
}

func TestDiameterToSize_Idempotent(t *testing.T) {
	for _, row := range Table() {
		got, ok := DiameterToSize(row.DiameterMM)
		if !ok {
			t.Errorf("US %v: no match for its own diameter", row.US)
			continue
		}
		if got != row {
			t.Errorf("US %v: mapped to US %v", row.US, got.US)
		}
	}
}

func TestCircumferenceToSize(t *testing.T) {
	tests := []struct {
		name   string
		mm     float64
		wantOK bool
		wantUS float64
	}{
		{"exact row", 57.0, true, 8},
		{"nearest above", 57.805, true, 8.5},
		{"nearest below", 54.0, true, 7},
		{"below chart within tolerance", 40.0, true, 3},
		{"below chart beyond tolerance", 38.9, false, 0},
		{"above chart beyond tolerance", 75.0, false, 0},
		{"zero", 0, false, 0},
		{"negative", -12, false, 0},
		{"nan", math.NaN(), false, 0},
		{"inf", math.Inf(1), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CircumferenceToSize(tt.mm)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.US != tt.wantUS {
				t.Errorf("US = %v, want %v", got.US, tt.wantUS)
			}
		})
	}
}

func TestDiameterToSize_CardScenario(t *testing.T) {
	// 85.6 mm card measured at 214 px, finger 46 px wide.
	ratio := 85.6 / 214.0
	diameter := 46 * ratio

	got, ok := DiameterToSize(diameter)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.US != 8.5 {
		t.Errorf("expected US 8.5 for %.2f mm, got %v", diameter, got.US)
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	_, err := Lookup(30)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	size, err := Lookup(18.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size.US != 8 {
		t.Errorf("expected US 8, got %v", size.US)
	}
}

func TestByUS(t *testing.T) {
	size, ok := ByUS(7.5)
	if !ok || size.UK != "O" || size.EU != 56 {
		t.Errorf("unexpected row for US 7.5: %+v", size)
	}
	if _, ok := ByUS(14); ok {
		t.Error("expected no row for US 14")
	}
}

func TestRingSize_Label(t *testing.T) {
	if got := (RingSize{US: 7}).Label(); got != "7" {
		t.Errorf("got %q", got)
	}
	if got := (RingSize{US: 10.5}).Label(); got != "10.5" {
		t.Errorf("got %q", got)
	}
}
