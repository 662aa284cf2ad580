package coverage

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	check "gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestThreshold(c *check.C) {
	for i, t := range []struct {
		dist Distribution
		p    float64
		want int
	}{
		{dist: Distribution{10: 1, 50: 1, 90: 1}, p: 99, want: 90},
		{dist: Distribution{10: 1, 50: 1, 90: 1}, p: 50, want: 50},
		{dist: Distribution{10: 1, 50: 1, 90: 1}, p: 1, want: 10},
		{dist: Distribution{0: 90, 1: 9, 100: 1}, p: 99, want: 100},
		{dist: Distribution{0: 90, 1: 9, 100: 1}, p: 98, want: 1},
		{dist: Distribution{7: 1000}, p: 99.9, want: 7},
	} {
		got, err := t.dist.Threshold(t.p)
		c.Assert(err, check.IsNil, check.Commentf("Test %d", i))
		c.Check(got, check.Equals, t.want, check.Commentf("Test %d", i))
	}
}

func (s *S) TestThresholdTail(c *check.C) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		dist := make(Distribution)
		for j := rnd.Intn(30) + 1; j > 0; j-- {
			dist[rnd.Intn(100)] += rnd.Intn(50) + 1
		}
		p := rnd.Float64()*98 + 1
		got, err := dist.Threshold(p)
		c.Assert(err, check.IsNil)

		total := float64(dist.Total())
		atOrAbove, above := 0, 0
		for d, n := range dist {
			if d >= got {
				atOrAbove += n
			}
			if d > got {
				above += n
			}
		}
		_, seen := dist[got]
		c.Check(seen, check.Equals, true)
		c.Check(float64(atOrAbove)/total*100 >= 100-p, check.Equals, true, check.Commentf("dist=%v p=%v d=%d", dist, p, got))
		if above > 0 {
			c.Check(float64(above)/total*100 < 100-p, check.Equals, true, check.Commentf("dist=%v p=%v d=%d", dist, p, got))
		}
	}
}

func (s *S) TestThresholdErrors(c *check.C) {
	for _, p := range []float64{0, 100, -3, 120} {
		_, err := Distribution{1: 1}.Threshold(p)
		c.Check(errors.Is(err, ErrInvalidPercentile), check.Equals, true, check.Commentf("p=%v", p))
	}
	_, err := Distribution{}.Threshold(50)
	c.Check(errors.Is(err, ErrEmptyDistribution), check.Equals, true)
}

func (s *S) TestParseRow(c *check.C) {
	row, err := ParseRow("contig_1\t12\t0\t3\t17 \n")
	c.Assert(err, check.IsNil)
	c.Check(row, check.DeepEquals, Row{Contig: "contig_1", Position: 12, Depths: []int{0, 3, 17}, Line: "contig_1\t12\t0\t3\t17"})
	c.Check(row.Sum(), check.Equals, 20)

	for _, bad := range []string{
		"contig_1\t12",
		"contig_1\tx\t1",
		"contig_1\t12\t1\ta",
		"contig_1\t12\t-1",
		"contig_1\t12\t1.5",
	} {
		_, err := ParseRow(bad)
		c.Check(errors.Is(err, ErrMalformedRow), check.Equals, true, check.Commentf("%q", bad))
	}
}

func (s *S) TestRowReader(c *check.C) {
	r := NewRowReader(strings.NewReader("a\t1\t2\t3\n\na\t2\t4\t5\na\t3\t6\n"))
	var got []int
	for r.Next() {
		got = append(got, r.Row().Position)
	}
	c.Check(got, check.DeepEquals, []int{1, 2})
	c.Check(r.Err(), check.ErrorMatches, "line 4: inconsistent number of depth fields.*")
}

const depthTable = "c1\t1\t5\t5\n" +
	"c1\t2\t0\t50\n" +
	"c1\t3\t45\t45\n"

func filterTable(c *check.C, table string, cfg Config) []string {
	dists, err := Collect(NewRowReader(strings.NewReader(table)))
	c.Assert(err, check.IsNil)
	t, err := dists.Thresholds(cfg)
	c.Assert(err, check.IsNil)
	var out []string
	err = Filter(NewRowReader(strings.NewReader(table)), t, cfg, func(r Row) error {
		out = append(out, r.Line)
		return nil
	})
	c.Assert(err, check.IsNil)
	return out
}

func (s *S) TestCollect(c *check.C) {
	dists, err := Collect(NewRowReader(strings.NewReader(depthTable)))
	c.Assert(err, check.IsNil)
	c.Check(dists.Sites, check.Equals, 3)
	c.Check(dists.Global, check.DeepEquals, Distribution{10: 1, 50: 1, 90: 1})
	c.Check(dists.Individuals, check.DeepEquals, []Distribution{{5: 1, 0: 1, 45: 1}, {5: 1, 50: 1, 45: 1}})

	t, err := dists.Thresholds(Config{GlobalPercentile: 99, IndividualPercentile: 99})
	c.Assert(err, check.IsNil)
	c.Check(t, check.DeepEquals, Thresholds{Global: 90, Individuals: []int{45, 50}})

	_, err = Collect(NewRowReader(strings.NewReader("\n")))
	c.Check(errors.Is(err, ErrEmptyDistribution), check.Equals, true)
}

func (s *S) TestFilter(c *check.C) {
	cfg := Config{GlobalPercentile: 99, IndividualPercentile: 99, MinimumCoverage: 1, MinimumIndividual: 2}
	c.Check(filterTable(c, depthTable, cfg), check.DeepEquals, []string{"c1\t1\t5\t5", "c1\t3\t45\t45"})

	cfg.MinimumIndividual = 1
	c.Check(filterTable(c, depthTable, cfg), check.DeepEquals, []string{"c1\t1\t5\t5", "c1\t2\t0\t50", "c1\t3\t45\t45"})

	// global threshold drops to 50
	cfg.GlobalPercentile = 50
	c.Check(filterTable(c, depthTable, cfg), check.DeepEquals, []string{"c1\t1\t5\t5", "c1\t2\t0\t50"})

	// individual thresholds drop to 5 and 45
	cfg = Config{GlobalPercentile: 99, IndividualPercentile: 40, MinimumCoverage: 1, MinimumIndividual: 1}
	c.Check(filterTable(c, depthTable, cfg), check.DeepEquals, []string{"c1\t1\t5\t5"})
}

func (s *S) TestConfigValidate(c *check.C) {
	c.Check(DefaultConfig().Validate(), check.IsNil)
	cfg := DefaultConfig()
	cfg.GlobalPercentile = 100
	c.Check(errors.Is(cfg.Validate(), ErrInvalidPercentile), check.Equals, true)
	cfg = DefaultConfig()
	cfg.IndividualPercentile = 0
	c.Check(errors.Is(cfg.Validate(), ErrInvalidPercentile), check.Equals, true)
	cfg = DefaultConfig()
	cfg.MinimumIndividual = -1
	c.Check(cfg.Validate(), check.NotNil)
}

func (s *S) TestMeetsMinimum(c *check.C) {
	row := Row{Depths: []int{0, 1, 2, 3}}
	c.Check(MeetsMinimum(row, 1, 3), check.Equals, true)
	c.Check(MeetsMinimum(row, 2, 3), check.Equals, false)
	c.Check(MeetsMinimum(row, 0, 4), check.Equals, true)
}

func (s *S) TestContigCoverage(c *check.C) {
	cov := NewContigCoverage([]map[string]int{
		{"a": 10, "b": 12, "c": 11, "d": 300},
		{"a": 9, "b": 10, "c": 200},
		{"e": 5},
	})
	c.Check(cov.Contigs(), check.DeepEquals, []string{"a", "b", "c", "d", "e"})
	c.Check(cov.Totals, check.DeepEquals, map[string]int{"a": 19, "b": 22, "c": 211, "d": 300, "e": 5})

	t, err := cov.Thresholds(75)
	c.Assert(err, check.IsNil)
	// totals sorted: 5 19 22 211 300, 0.75*4 = 3
	c.Check(t.Global, check.Equals, 211)
	// 10 11 12 300 -> 0.75*3 = 2.25; 9 10 200 -> 1.5; 5
	c.Check(t.Individuals, check.DeepEquals, []int{12, 10, 5})

	keep := cov.Keep(t)
	// d fails globally, c fails in individual 2, e only seen in individual 3
	c.Check(keep, check.DeepEquals, map[string]bool{"a": true, "b": true, "e": true})
}

func (s *S) TestContigCoverageEmptyIndividual(c *check.C) {
	cov := NewContigCoverage([]map[string]int{{"a": 3, "b": 4}, {}})
	t, err := cov.Thresholds(99)
	c.Assert(err, check.IsNil)
	c.Check(t.Individuals, check.DeepEquals, []int{3, 0})
	c.Check(cov.Keep(t), check.DeepEquals, map[string]bool{"a": true})

	_, err = NewContigCoverage([]map[string]int{{}}).Thresholds(99)
	c.Check(errors.Is(err, ErrEmptyDistribution), check.Equals, true)
}

func (s *S) TestFilterRegions(c *check.C) {
	bed := "b\t0\t100\n" +
		"a\t0\t120\tname\t0\t+\n" +
		"\n" +
		"z\t0\t90\n" +
		"a\t200\t300\n"
	var buf bytes.Buffer
	n, err := FilterRegions(strings.NewReader(bed), map[string]bool{"a": true, "b": true}, &buf)
	c.Assert(err, check.IsNil)
	c.Check(n, check.Equals, 3)
	c.Check(buf.String(), check.Equals, "b\t0\t100\na\t0\t120\tname\t0\t+\na\t200\t300\n")

	_, err = FilterRegions(strings.NewReader("a\t0\n"), map[string]bool{"a": true}, &buf)
	c.Check(errors.Is(err, ErrMalformedRow), check.Equals, true)
}

func (s *S) TestReadCounts(c *check.C) {
	counts, err := ReadCounts(strings.NewReader("   12 contig_1\n    3 contig_2\n    4 contig_1\n    0 contig_3\n"))
	c.Assert(err, check.IsNil)
	c.Check(counts, check.DeepEquals, map[string]int{"contig_1": 16, "contig_2": 3})

	_, err = ReadCounts(strings.NewReader("12\n"))
	c.Check(errors.Is(err, ErrMalformedRow), check.Equals, true)
}

func writeBAM(c *check.C, path string) {
	ref1, err := sam.NewReference("contig_1", "", "", 1000, nil, nil)
	c.Assert(err, check.IsNil)
	ref2, err := sam.NewReference("contig_2", "", "", 1000, nil, nil)
	c.Assert(err, check.IsNil)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref1, ref2})
	c.Assert(err, check.IsNil)

	f, err := os.Create(path)
	c.Assert(err, check.IsNil)
	defer f.Close()
	w, err := bam.NewWriter(f, h, 1)
	c.Assert(err, check.IsNil)

	for _, r := range []struct {
		ref   *sam.Reference
		pos   int
		flags sam.Flags
	}{
		{ref1, 1, sam.Paired | sam.Read1},
		{ref1, 1, sam.Paired | sam.Read1 | sam.Reverse},
		{ref1, 1, sam.Paired | sam.Read2},
		{ref1, 5, sam.Paired | sam.Read1},
		{ref2, 1, sam.Paired | sam.Read1},
		{ref2, 1, sam.Paired | sam.Read1 | sam.Unmapped},
		{nil, -1, sam.Paired | sam.Read1 | sam.Unmapped},
	} {
		rec, err := sam.NewRecord("read", r.ref, nil, r.pos, -1, 0, 60,
			[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)}, []byte("ACGT"), []byte{30, 30, 30, 30}, nil)
		c.Assert(err, check.IsNil)
		rec.Flags = r.flags
		c.Assert(w.Write(rec), check.IsNil)
	}
	c.Assert(w.Close(), check.IsNil)
}

func (s *S) TestBAMSource(c *check.C) {
	path := filepath.Join(c.MkDir(), "ind1.bam")
	writeBAM(c, path)

	counts, err := NewBAMSource(path).Counts()
	c.Assert(err, check.IsNil)
	// the placed unmapped read on contig_2 counts, the unplaced one does not
	c.Check(counts, check.DeepEquals, map[string]int{"contig_1": 2, "contig_2": 2})

	src := &BAMSource{Path: path, Required: sam.Read2, Position: 2}
	counts, err = src.Counts()
	c.Assert(err, check.IsNil)
	c.Check(counts, check.DeepEquals, map[string]int{"contig_1": 1})
}

func (s *S) TestCollectContigCoverage(c *check.C) {
	dir := c.MkDir()
	bamPath := filepath.Join(dir, "ind1.bam")
	writeBAM(c, bamPath)
	countsPath := filepath.Join(dir, "ind2.txt")
	c.Assert(os.WriteFile(countsPath, []byte("  7 contig_3\n"), 0o644), check.IsNil)

	cov, err := CollectContigCoverage([]Source{NewBAMSource(bamPath), CountTable{Path: countsPath}})
	c.Assert(err, check.IsNil)
	c.Check(cov.Totals, check.DeepEquals, map[string]int{"contig_1": 2, "contig_2": 2, "contig_3": 7})

	_, err = CollectContigCoverage([]Source{CountTable{Path: filepath.Join(dir, "missing.txt")}})
	c.Check(err, check.NotNil)
}
