package estat

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParseClassSets(t *testing.T) {
	ci := &classInf{ClassObj: json.RawMessage(`[
		{"@id": "tab", "@name": "表章項目", "CLASS": {"@code": "020", "@name": "人口", "@level": "", "@unit": "人"}},
		{"@id": "broken", "@name": "壊れた分類", "CLASS": "not a list"},
		{"@name": "IDなし", "CLASS": []},
		{"@id": "area", "@name": "地域", "CLASS": [
			{"@code": "00000", "@name": "全国", "@level": "1"},
			{"@code": "13000", "@name": "東京都", "@level": "2", "@parentCode": "00000"}
		]}
	]`)}

	sets := parseClassSets(ci)

	var ids []string
	for _, s := range sets {
		ids = append(ids, s.ID)
	}
	if !slices.Equal(ids, []string{"tab", "area"}) {
		t.Fatalf("Got %v, wanted the broken classifications skipped", ids)
	}

	tab := sets[0]
	if len(tab.Entries) != 1 || tab.Entries[0].Level != nil || tab.Entries[0].Unit != "人" {
		t.Errorf("Got %+v, wanted one entry without level", tab.Entries)
	}
	if tab.Hierarchical() {
		t.Error("Got a hierarchy, wanted none for an empty level")
	}

	area := sets[1]
	if result := area.Levels(); !slices.Equal(result, []int{1, 2}) {
		t.Errorf("Got %v, wanted [1 2]", result)
	}
	if !area.Hierarchical() {
		t.Error("Got no hierarchy, wanted two levels")
	}
}

func TestParseClassSetsMissing(t *testing.T) {
	if sets := parseClassSets(nil); sets != nil {
		t.Errorf("Got %v, wanted no classifications", sets)
	}
}

func TestClassificationTable(t *testing.T) {
	set := ClassificationSet{ID: "area", Name: "地域"}
	set.Add(ClassificationEntry{Code: "00000", Name: "全国", Level: Int(1)})
	set.Add(ClassificationEntry{Code: "13000", Name: "東京都", Level: Int(2), ParentCode: "00000"})
	set.Add(ClassificationEntry{Code: "99999", Name: "不詳"})

	type testCase struct {
		prefix   bool
		expected []string
	}

	cases := []testCase{
		{true, []string{"area_code", "area_name", "area_level", "area_parentCode"}},
		{false, []string{"code", "name", "level", "parentCode"}},
	}

	for _, c := range cases {
		t.Log("Testing prefix:", c.prefix)

		df := set.Table(c.prefix)
		if result := df.Names(); !slices.Equal(result, c.expected) {
			t.Errorf("Got %v, wanted %v", result, c.expected)
		}
		if df.Nrow() != 3 {
			t.Errorf("Got %v rows, wanted 3", df.Nrow())
		}

		level := df.Col(c.expected[2])
		if n, err := level.Elem(1).Int(); err != nil || n != 2 {
			t.Errorf("Got %v (%v), wanted level 2", n, err)
		}
		if !level.Elem(2).IsNA() {
			t.Error("Got a level for an entry without one, wanted NA")
		}
		if !df.Col(c.expected[3]).Elem(0).IsNA() {
			t.Error("Got a parent code for the root, wanted NA")
		}
	}
}

func TestClassificationExtraAttributes(t *testing.T) {
	ci := &classInf{ClassObj: json.RawMessage(`{"@id": "cat01", "@name": "品目", "CLASS": [
		{"@code": "001", "@name": "米", "@level": "1", "@addInf": "注1"},
		{"@code": "001", "@name": "米（重複）", "@level": "1"}
	]}`)}

	sets := parseClassSets(ci)
	if len(sets) != 1 {
		t.Fatalf("Got %v sets, wanted 1", len(sets))
	}

	df := sets[0].Table(true)
	expected := []string{"cat01_code", "cat01_name", "cat01_level", "cat01_addInf"}
	if result := df.Names(); !slices.Equal(result, expected) {
		t.Errorf("Got %v, wanted %v", result, expected)
	}
	if result := len(sets[0].uniqueEntries()); result != 1 {
		t.Errorf("Got %v unique entries, wanted 1", result)
	}
}
