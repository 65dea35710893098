package estat

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func TestBuildObservationsMarkers(t *testing.T) {
	raw := json.RawMessage(`[
		{"@cat01": "001", "@area": "00000", "$": "-"},
		{"@cat01": "002", "@area": "00000", "$": "12.5"},
		{"@cat01": "003", "@area": "00000", "$": " 3 "},
		{"@cat01": "004", "@area": "00000", "$": "x"},
		{"@cat01": "005", "@area": "00000", "$": "***"},
		{"@cat01": "006", "@area": "00000"}
	]`)
	notes := []Note{{Char: "-", Description: "no data"}, {Char: "***", Description: "秘匿"}}

	type testCase struct {
		naValue  *float64
		expected []float64
		missing  []bool
	}

	sentinel := -1.0
	cases := []testCase{
		{nil, []float64{0, 12.5, 3, 0, 0, 0}, []bool{true, false, false, true, true, true}},
		{&sentinel, []float64{-1, 12.5, 3, -1, -1, -1}, []bool{false, false, false, false, false, false}},
	}

	for _, c := range cases {
		t.Log("Testing NA value:", c.naValue)

		table, err := BuildObservations(raw, notes, c.naValue)
		if err != nil {
			t.Fatal(err)
		}

		values := table.Frame.Col("value")
		for i := range c.expected {
			elem := values.Elem(i)
			if elem.IsNA() != c.missing[i] {
				t.Errorf("Got NA=%v for row %d, wanted %v", elem.IsNA(), i, c.missing[i])
				continue
			}
			if !c.missing[i] && elem.Float() != c.expected[i] {
				t.Errorf("Got %v, wanted %v", elem.Float(), c.expected[i])
			}
		}
	}
}

func TestBuildObservationsColumns(t *testing.T) {
	raw := json.RawMessage(`{"@tab": "020", "@cat01": "001", "@time": "2020000000", "@unit": "人", "$": "5"}`)

	table, err := BuildObservations(raw, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"tab", "cat01", "time", "unit", "value"}
	if result := table.Frame.Names(); !slices.Equal(result, expected) {
		t.Errorf("Got %v, wanted %v", result, expected)
	}
	if result := table.CategoryColumns; !slices.Equal(result, expected[:4]) {
		t.Errorf("Got %v, wanted %v", result, expected[:4])
	}
	if result := column(table.Frame, "cat01"); result[0] != "001" {
		t.Errorf("Got %v, wanted the code to keep its leading zeros", result[0])
	}
}

func TestBuildObservationsMalformed(t *testing.T) {
	_, err := BuildObservations(json.RawMessage(`["not a record"]`), nil, nil)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Got %v, wanted %v", err, ErrMalformedPayload)
	}
}
