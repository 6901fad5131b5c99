package align

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestTablesComplete(t *testing.T) {
	if len(Pairs) != 9 {
		t.Errorf("len(Pairs) = %d, want 9", len(Pairs))
	}
	if len(Triples) != 27 {
		t.Errorf("len(Triples) = %d, want 27", len(Triples))
	}
	for code, tr := range Pairs {
		if tr[2] != Min {
			t.Errorf("Pairs[%s] z = %v, want min", code, tr[2])
		}
		if full := Triples[code+"L"]; full != tr {
			t.Errorf("Pairs[%s] = %v, Triples[%sL] = %v", code, tr, code, full)
		}
	}
	for code, tr := range Triples {
		if tr.Code() != code {
			t.Errorf("Triples[%s].Code() = %s", code, tr.Code())
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		code    string
		want    Triple
		wantErr bool
	}{
		{"LL", Triple{Min, Min, Min}, false},
		{"ch", Triple{Center, Max, Min}, false},
		{"LCH", Triple{Min, Center, Max}, false},
		{"hhh", Triple{Max, Max, Max}, false},
		{"", Triple{}, true},
		{"L", Triple{}, true},
		{"LX", Triple{}, true},
		{"LLLL", Triple{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := Parse(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	min := r3.Vec{X: 2, Y: 4, Z: 6}
	max := r3.Vec{X: 4, Y: 8, Z: 12}
	tests := []struct {
		code string
		want r3.Vec
	}{
		{"LLL", r3.Vec{X: -2, Y: -4, Z: -6}},
		{"CCC", r3.Vec{X: -3, Y: -6, Z: -9}},
		{"HCL", r3.Vec{X: -4, Y: -6, Z: -6}},
		{"CH", r3.Vec{X: -3, Y: -8, Z: -6}},
	}
	for _, tt := range tests {
		tr, err := Parse(tt.code)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.code, err)
		}
		if got := tr.Offset(min, max); got != tt.want {
			t.Errorf("%s.Offset = %v, want %v", tt.code, got, tt.want)
		}
	}
}
