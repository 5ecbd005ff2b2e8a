package summary

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

func TestTimeSpecValidate(t *testing.T) {
	m, d := 4, 2
	cases := []struct {
		name string
		spec TimeSpec
		ok   bool
	}{
		{"all", TimeSpec{}, true},
		{"year", Year(2017), true},
		{"day", Day(2017, 4, 2), true},
		{"month without year", TimeSpec{Month: &m}, false},
		{"day without month", TimeSpec{Year: &m, Day: &d}, false},
		{"month out of range", Month(2017, 13), false},
		{"leap day", Day(2016, 2, 29), true},
		{"no leap day", Day(2019, 2, 29), false},
		{"february 31", Day(2019, 2, 31), false},
		{"april 31", Day(2019, 4, 31), false},
	}
	for _, c := range cases {
		err := c.spec.Validate()
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidTimeSpec) {
			t.Fatalf("%s: expected ErrInvalidTimeSpec, got %v", c.name, err)
		}
	}
}

func TestTimeSpecTriple(t *testing.T) {
	got := Month(2017, 4).Triple()
	if got[0] != 2017 || got[1] != 4 || got[2] != nil {
		t.Fatalf("triple %v", got)
	}
	if s := Month(2017, 4).String(); s != "2017:4:-" {
		t.Fatalf("string %q", s)
	}
}

func TestPeriodSummaryJSON(t *testing.T) {
	gen := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	in := PeriodSummary{
		DatasetCount:        3,
		FootprintGeometry:   orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		FootprintCRS:        "EPSG:32755",
		FootprintCount:      3,
		RegionDatasetCounts: map[string]int{"a": 3},
		GeneratedAt:         &gen,
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out PeriodSummary
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !orb.Equal(out.FootprintGeometry, in.FootprintGeometry) || out.FootprintCRS != in.FootprintCRS {
		t.Fatalf("footprint lost: %+v", out)
	}
	if out.RegionDatasetCounts["a"] != 3 || out.GeneratedAt == nil || !out.GeneratedAt.Equal(gen) {
		t.Fatalf("fields lost: %+v", out)
	}

	var empty PeriodSummary
	b, _ = json.Marshal(PeriodSummary{})
	if err := json.Unmarshal(b, &empty); err != nil || empty.FootprintGeometry != nil {
		t.Fatalf("empty summary: %+v %v", empty, err)
	}
}
