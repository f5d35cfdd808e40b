package sorting

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

func rowsOf(column string, values ...model.Value) []*model.Row {
	rows := make([]*model.Row, len(values))
	for i, v := range values {
		rows[i] = model.NewRow(i, map[string]model.Value{column: v})
	}
	return rows
}

func texts(rows []*model.Row, column string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text(column)
	}
	return out
}

func indexes(rows []*model.Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCustomOrder(t *testing.T) {
	rows := rowsOf("Priority", model.Scalar("Low"), model.Scalar("High"), model.Scalar("Medium"), model.Scalar("High"))
	spec := model.SortSpec{{Column: "Priority", Direction: model.Custom, Order: []string{"High", "Medium", "Low"}}}

	got := Rows(rows, spec, nil)
	want := []int{1, 3, 2, 0}
	if !equalInts(indexes(got), want) {
		t.Errorf("expected %v, got %v", want, indexes(got))
	}
	if rows[0].Index != 0 {
		t.Error("expected input slice to stay untouched")
	}
}

func TestCustomOrderUnlistedAndEmpty(t *testing.T) {
	rows := rowsOf("P", model.Scalar(""), model.Scalar("zeta"), model.Scalar("high"), model.Scalar("alpha"))
	spec := model.SortSpec{{Column: "P", Direction: model.Custom, Order: []string{"High"}}}

	got := texts(Rows(rows, spec, nil), "P")
	want := []string{"high", "alpha", "zeta", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNumericAndEmptyLast(t *testing.T) {
	rows := rowsOf("N", model.Scalar("10"), model.Null(), model.Scalar("9"), model.Scalar(""), model.Scalar("100"))
	for _, dir := range []model.Direction{model.Ascending, model.Descending} {
		got := texts(Rows(rows, model.SortSpec{{Column: "N", Direction: dir}}, nil), "N")
		if got[3] != "" || got[4] != "" {
			t.Errorf("%s: expected empties last, got %v", dir, got)
		}
		first := "9"
		if dir == model.Descending {
			first = "100"
		}
		if got[0] != first {
			t.Errorf("%s: expected %s first, got %v", dir, first, got)
		}
	}
}

func TestNaNTextSortsAsText(t *testing.T) {
	rows := rowsOf("N", model.Scalar("4"), model.Scalar("Nan"), model.Scalar("3"), model.Scalar("NaN"), model.Scalar("10"))
	got := texts(Rows(rows, model.SortSpec{{Column: "N"}}, nil), "N")
	want := []string{"3", "4", "10", "Nan", "NaN"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if c := compareText("Nan", "3"); c != 1 {
		t.Errorf("expected Nan after 3, got %d", c)
	}
	if c := compareText("3", "4"); c != -1 {
		t.Errorf("expected 3 before 4, got %d", c)
	}
}

func TestCaseInsensitiveText(t *testing.T) {
	rows := rowsOf("Name", model.Scalar("bob"), model.Scalar("Alice"), model.Scalar("carol"))
	got := texts(Rows(rows, model.SortSpec{{Column: "Name"}}, nil), "Name")
	want := []string{"Alice", "bob", "carol"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMultiValueUsesFirstNonEmpty(t *testing.T) {
	rows := rowsOf("Tags", model.Multi("", "b"), model.Multi("a", "z"), model.Multi("", ""))
	got := indexes(Rows(rows, model.SortSpec{{Column: "Tags"}}, nil))
	want := []int{1, 0, 2}
	if !equalInts(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMultiKeyFallsThrough(t *testing.T) {
	rows := []*model.Row{
		model.NewRow(0, map[string]model.Value{"A": model.Scalar("1"), "B": model.Scalar("y")}),
		model.NewRow(1, map[string]model.Value{"A": model.Scalar("1"), "B": model.Scalar("x")}),
		model.NewRow(2, map[string]model.Value{"A": model.Scalar("0"), "B": model.Scalar("z")}),
	}
	spec := model.SortSpec{{Column: "A"}, {Column: "B", Direction: model.Ascending}}
	got := indexes(Rows(rows, spec, nil))
	want := []int{2, 1, 0}
	if !equalInts(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func genRows(t *rapid.T) []*model.Row {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	rows := make([]*model.Row, n)
	for i := range rows {
		rows[i] = model.NewRow(i, map[string]model.Value{
			"P": model.Scalar(rapid.SampledFrom([]string{"High", "low", "Medium", "", "7", "10"}).Draw(t, "p")),
			"Q": model.Multi(rapid.SliceOfN(rapid.SampledFrom([]string{"", "a", "B", "3"}), 0, 2).Draw(t, "q")...),
		})
	}
	return rows
}

func genSpec(t *rapid.T) model.SortSpec {
	n := rapid.IntRange(1, 2).Draw(t, "keys")
	spec := make(model.SortSpec, n)
	for i := range spec {
		spec[i] = model.SortKey{
			Column:    rapid.SampledFrom([]string{"P", "Q"}).Draw(t, "column"),
			Direction: rapid.SampledFrom([]model.Direction{model.Ascending, model.Descending, model.Custom}).Draw(t, "dir"),
			Order:     []string{"High", "Medium", "Low"},
		}
	}
	return spec
}

func TestSortIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows(t)
		spec := genSpec(t)
		once := Rows(rows, spec, nil)
		twice := Rows(once, spec, nil)
		if !equalInts(indexes(once), indexes(twice)) {
			t.Fatalf("expected idempotent sort, got %v then %v", indexes(once), indexes(twice))
		}
	})
}

func TestSortStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := genRows(t)
		spec := genSpec(t)
		got := Rows(rows, spec, nil)
		for i := 1; i < len(got); i++ {
			c := Compare(got[i-1], got[i], spec, nil)
			if c > 0 {
				t.Fatalf("rows %d and %d out of order", got[i-1].Index, got[i].Index)
			}
			if c == 0 && got[i-1].Index > got[i].Index {
				t.Fatalf("equal rows %d and %d lost input order", got[i-1].Index, got[i].Index)
			}
		}
	})
}
