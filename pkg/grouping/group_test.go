package grouping

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/csvboard/pkg/model"
)

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func equalStrings(a, b []string) bool {
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

func newContext(headers []string, values ...map[string]model.Value) (*model.Context, []*model.Row) {
	rows := make([]*model.Row, len(values))
	for i, v := range values {
		rows[i] = model.NewRow(i, v)
	}
	ds := model.NewDataset(headers, rows)
	return model.NewContext(ds, nil), ds.Rows
}

func TestMultiValueFanOut(t *testing.T) {
	ctx, rows := newContext([]string{"Tags"},
		map[string]model.Value{"Tags": model.Multi("A", "B")},
		map[string]model.Value{"Tags": model.Null()},
		map[string]model.Value{"Tags": model.Multi("B", "B")},
	)
	groups := Rows(rows, Options{Column: "Tags"}, ctx)

	want := []string{"A", "B", Uncategorized}
	if !equalStrings(keys(groups), want) {
		t.Fatalf("expected %v, got %v", want, keys(groups))
	}
	if len(groups[0].Rows) != 1 || groups[0].Rows[0].Index != 0 {
		t.Errorf("expected row 0 in A, got %v", groups[0].Rows)
	}
	if len(groups[1].Rows) != 2 {
		t.Errorf("expected rows 0 and 2 in B once each, got %d", len(groups[1].Rows))
	}
}

func TestLookupMode(t *testing.T) {
	ctx, rows := newContext([]string{"ID", "Name", "Parent"},
		map[string]model.Value{"ID": model.Scalar("p1"), "Name": model.Scalar("Platform")},
		map[string]model.Value{"ID": model.Scalar("c1"), "Parent": model.Multi("p1", "zz")},
		map[string]model.Value{"ID": model.Scalar("c2"), "Parent": model.Scalar("p1")},
	)
	opts := Options{Column: "Parent", Lookup: &model.GroupLookup{IDColumn: "ID", NameColumn: "Name", TopLevelLabel: "Roots"}}
	groups := Rows(rows, opts, ctx)

	want := []string{"Roots", "Platform", "zz (not found)"}
	if !equalStrings(keys(groups), want) {
		t.Fatalf("expected %v, got %v", want, keys(groups))
	}
	if !groups[0].TopLevel || !groups[2].NotFound {
		t.Errorf("expected top-level and not-found markers, got %+v", groups)
	}
	if len(groups[1].Rows) != 2 {
		t.Errorf("expected two children of Platform, got %d", len(groups[1].Rows))
	}
	if len(ctx.Warnings()) != 1 {
		t.Errorf("expected one unresolved-id warning, got %v", ctx.Warnings())
	}
}

func TestGroupOrderModes(t *testing.T) {
	ctx, rows := newContext([]string{"S"},
		map[string]model.Value{"S": model.Scalar("beta")},
		map[string]model.Value{"S": model.Scalar("Alpha")},
		map[string]model.Value{"S": model.Scalar("beta")},
		map[string]model.Value{"S": model.Scalar("gamma")},
		map[string]model.Value{"S": model.Scalar("gamma")},
		map[string]model.Value{"S": model.Scalar("gamma")},
	)
	tests := []struct {
		name  string
		order *model.GroupOrder
		want  []string
	}{
		{"default", nil, []string{"Alpha", "beta", "gamma"}},
		{"list", &model.GroupOrder{Mode: model.OrderList, Values: []string{"GAMMA"}}, []string{"gamma", "Alpha", "beta"}},
		{"count asc", &model.GroupOrder{Mode: model.OrderCountAsc}, []string{"Alpha", "beta", "gamma"}},
		{"count desc", &model.GroupOrder{Mode: model.OrderCountDesc}, []string{"gamma", "beta", "Alpha"}},
		{"key desc", &model.GroupOrder{Mode: model.OrderKeyDesc}, []string{"gamma", "beta", "Alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keys(Rows(rows, Options{Column: "S", Order: tt.order}, ctx))
			if !equalStrings(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIncludeEmptyListedGroups(t *testing.T) {
	ctx, rows := newContext([]string{"S"}, map[string]model.Value{"S": model.Scalar("todo")})
	opts := Options{Column: "S", Order: &model.GroupOrder{Mode: model.OrderList, Values: []string{"todo", "doing", "done"}}, IncludeEmpty: true}
	got := keys(Rows(rows, opts, ctx))
	want := []string{"todo", "doing", "done"}
	if !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func groupsOfSizes(sizes ...int) []Group {
	out := make([]Group, len(sizes))
	for i, n := range sizes {
		out[i] = Group{Key: string(rune('a' + i)), Rows: make([]*model.Row, n)}
	}
	return out
}

func TestPackLargeGroupsGetOwnColumn(t *testing.T) {
	cols := Pack(groupsOfSizes(1, 2, 50, 1, 1, 1), 2, 10)
	var shape []int
	for _, c := range cols {
		shape = append(shape, len(c))
	}
	want := []int{2, 1, 2, 1}
	if len(shape) != len(want) {
		t.Fatalf("expected column sizes %v, got %v", want, shape)
	}
	for i := range want {
		if shape[i] != want[i] {
			t.Fatalf("expected column sizes %v, got %v", want, shape)
		}
	}
	if cols[1][0].Key != "c" {
		t.Errorf("expected the large group alone in column 2, got %s", cols[1][0].Key)
	}
}

func TestPackKeepsEveryGroup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 20), 0, 15).Draw(t, "sizes")
		max := rapid.IntRange(-1, 5).Draw(t, "max")
		threshold := rapid.IntRange(-1, 15).Draw(t, "threshold")
		groups := groupsOfSizes(sizes...)

		var flat []Group
		for _, c := range Pack(groups, max, threshold) {
			if len(c) == 0 {
				t.Fatal("expected no empty columns")
			}
			flat = append(flat, c...)
		}
		if !equalStrings(keys(flat), keys(groups)) {
			t.Fatalf("expected packing to preserve group order, got %v", keys(flat))
		}
	})
}
