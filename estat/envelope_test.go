package estat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOneOrMany(t *testing.T) {
	type testCase struct {
		input    string
		expected []string
	}

	cases := []testCase{
		{`{"@code": "001"}`, []string{"001"}},
		{`[{"@code": "001"}, {"@code": "002"}]`, []string{"001", "002"}},
		{`[]`, []string{}},
		{`null`, nil},
	}

	for _, c := range cases {
		t.Log("Testing input:", c.input)

		var items OneOrMany[struct {
			Code string `json:"@code"`
		}]
		if err := json.Unmarshal([]byte(c.input), &items); err != nil {
			t.Fatal(err)
		}
		if len(items) != len(c.expected) {
			t.Fatalf("Got %v items, wanted %v", len(items), len(c.expected))
		}
		for i := range items {
			if items[i].Code != c.expected[i] {
				t.Errorf("Got %v, wanted %v", items[i].Code, c.expected[i])
			}
		}
	}
}

func TestText(t *testing.T) {
	type testCase struct {
		input string
		value string
		code  string
		valid bool
	}

	cases := []testCase{
		{`"総務省"`, "総務省", "", true},
		{`0`, "0", "", true},
		{`null`, "", "", false},
		{`{"@code": "00200", "$": "総務省"}`, "総務省", "00200", true},
		{`{"@no": "001", "$": "人口"}`, "人口", "001", true},
		{`{"@code": "00200"}`, "", "00200", false},
	}

	for _, c := range cases {
		t.Log("Testing input:", c.input)

		var text Text
		if err := json.Unmarshal([]byte(c.input), &text); err != nil {
			t.Fatal(err)
		}
		if text.Value != c.value || text.Code != c.code || text.Valid != c.valid {
			t.Errorf("Got %+v, wanted {%v %v %v}", text, c.value, c.code, c.valid)
		}
	}
}

func TestTextInt(t *testing.T) {
	type testCase struct {
		input    string
		expected *int
	}

	cases := []testCase{
		{`3`, Int(3)},
		{`"0"`, Int(0)},
		{`null`, nil},
		{`"abc"`, nil},
	}

	for _, c := range cases {
		var text Text
		if err := json.Unmarshal([]byte(c.input), &text); err != nil {
			t.Fatal(err)
		}

		result := text.Int()
		switch {
		case result == nil && c.expected == nil:
		case result == nil || c.expected == nil || *result != *c.expected:
			t.Errorf("Got %v, wanted %v for %s", result, c.expected, c.input)
		}
	}
}

func TestRequireEnvelope(t *testing.T) {
	if _, err := requireEnvelope(OpStatsData, []byte(`{"GET_META_INFO": {}}`)); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Got %v, wanted %v", err, ErrMalformedPayload)
	}

	if _, err := requireEnvelope(OpStatsData, []byte(`not json`)); err == nil || errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Got %v, wanted a decoding error", err)
	}

	body, err := requireEnvelope(OpStatsData, []byte(statsDataJSON))
	if err != nil {
		t.Fatal(err)
	}
	if body.StatisticalData == nil || body.StatisticalData.DataInf == nil {
		t.Error("Got no STATISTICAL_DATA, wanted the decoded body")
	}
}

func TestRequireEnvelopeOptionalBlocks(t *testing.T) {
	type testCase struct {
		block string
		total int
	}

	values := `"DATA_INF": {"VALUE": [{"@tab": "020", "$": "1"}]}`
	cases := []testCase{
		{`"RESULT_INF": [], "TABLE_INF": {"@id": "0003000001"}`, 0},
		{`"RESULT_INF": {"TOTAL_NUMBER": 1}, "TABLE_INF": "0003000001"`, 1},
		{`"RESULT_INF": {"TOTAL_NUMBER": 1}, "CLASS_INF": ""`, 1},
		{`"RESULT_INF": {"TOTAL_NUMBER": 1}, "CLASS_INF": [1, 2]`, 1},
		{`"RESULT_INF": null, "TABLE_INF": null, "CLASS_INF": null`, 0},
	}

	for _, c := range cases {
		t.Log("Testing block:", c.block)

		raw := `{"GET_STATS_DATA": {"RESULT": {"STATUS": 0}, "STATISTICAL_DATA": {` + c.block + `, ` + values + `}}}`
		body, err := requireEnvelope(OpStatsData, []byte(raw))
		if err != nil {
			t.Fatalf("Got %v, wanted the block to be ignored", err)
		}

		sd := body.StatisticalData
		if sd == nil || sd.DataInf == nil || len(sd.DataInf.Value) == 0 {
			t.Fatal("Got no DATA_INF, wanted the observations decoded")
		}
		if sets := parseClassSets(sd.ClassInf); len(sets) != 0 {
			t.Errorf("Got %v, wanted no classifications", sets)
		}

		total, ok := body.metadata().Total()
		if c.total == 0 && ok {
			t.Errorf("Got %v, wanted no total", total)
		}
		if c.total > 0 && total != c.total {
			t.Errorf("Got %v, wanted %v", total, c.total)
		}
	}
}

func TestDecodeFieldsOrder(t *testing.T) {
	fields, err := decodeFields([]byte(`{"@tab": "020", "@cat01": "001", "@area": "00000", "$": "12.5"}`))
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"@tab", "@cat01", "@area", "$"}
	for i, f := range fields {
		if f.Key != expected[i] {
			t.Errorf("Got %v, wanted %v", f.Key, expected[i])
		}
	}
}
