//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// MinMaxBuiltin flags math.Min and math.Max round trips through float64 for
// integers, and if/else selections of the smaller or larger value.
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b)").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b)").
		Suggest("max($a, $b)")

	m.Match(`if $a < $b { $x = $a } else { $x = $b }`).
		Report("use $x = min($a, $b)").
		Suggest("$x = min($a, $b)")

	m.Match(`if $a > $b { $x = $a } else { $x = $b }`).
		Report("use $x = max($a, $b)").
		Suggest("$x = max($a, $b)")
}

// TestingContext flags context.Background and context.TODO in tests, where
// t.Context is cancelled when the test ends.
func TestingContext(m dsl.Matcher) {
	m.Match(`$ctx := context.Background()`, `$ctx := context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() in tests")

	m.Match(`$fn(context.Background(), $*_)`, `$fn(context.TODO(), $*_)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("pass t.Context() in tests")
}

// BenchmarkLoop flags b.N loops.
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*_ }`, `for range $b.N { $*_ }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }")
}

// TimeLayoutConstants flags layouts that have a named constant in package
// time. History listings and exported timestamps use these.
func TimeLayoutConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report("use $t.Format(time.DateTime)").
		Suggest("$t.Format(time.DateTime)")

	m.Match(`$t.Format("2006-01-02")`).
		Report("use $t.Format(time.DateOnly)").
		Suggest("$t.Format(time.DateOnly)")

	m.Match(`$t.Format("2006-01-02T15:04:05Z07:00")`).
		Report("use $t.Format(time.RFC3339)").
		Suggest("$t.Format(time.RFC3339)")
}

// WaitGroupGo flags the Add/Done goroutine pattern that sync.WaitGroup.Go
// replaces. Batch work with a limit goes through errgroup instead.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("sync.WaitGroup") || m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })").
		Suggest("$wg.Go(func() { $body })")
}

// SliceHelpers flags loops that the slices and maps packages cover.
func SliceHelpers(m dsl.Matcher) {
	m.Match(`sort.Slice($s, func($i, $j int) bool { return $s[$i] < $s[$j] })`).
		Report("use slices.Sort($s)").
		Suggest("slices.Sort($s)")

	m.Match(`for $_, $v := range $src { $dst = append($dst, $v) }`).
		Where(m["dst"].Text != m["src"].Text).
		Report("use $dst = append($dst, $src...)")
}
