package main

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"estat_reader/estat"
)

func TestUpdatedSince(t *testing.T) {
	type testCase struct {
		input    string
		expected string
		ok       bool
	}

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cases := []testCase{
		{"", "", true},
		{"P1M", "20240215-20240315", true},
		{"P10D", "20240305-20240315", true},
		{"P1Y", "20230315-20240315", true},
		{"one month", "", false},
	}

	for _, c := range cases {
		t.Log("Testing period:", c.input)

		result, err := updatedSince(c.input, now)
		if (err == nil) != c.ok {
			t.Fatalf("Got error %v, wanted ok=%v", err, c.ok)
		}
		if result != c.expected {
			t.Errorf("Got %v, wanted %v", result, c.expected)
		}
	}
}

func TestDataFilters(t *testing.T) {
	config := DataConfig{
		Filters: []string{"area=13000, 14000", "cat99=1", "Tab=020"},
		Levels:  []string{"area=2"},
	}

	filters, err := config.filters()
	if err != nil {
		t.Fatal(err)
	}

	type testCase struct {
		dim      estat.Dimension
		expected estat.Filter
	}

	cases := []testCase{
		{estat.DimArea, estat.Filter{Code: "13000,14000", Level: "2"}},
		{estat.DimTab, estat.Filter{Code: "020"}},
	}

	if len(filters) != len(cases) {
		t.Errorf("Got %v, wanted %v filters", filters, len(cases))
	}
	for _, c := range cases {
		if result := filters[c.dim]; result != c.expected {
			t.Errorf("Got %+v, wanted %+v", result, c.expected)
		}
	}

	bad := DataConfig{Filters: []string{"area"}}
	if _, err := bad.filters(); err == nil {
		t.Error("Got nil, wanted an error for a filter without '='")
	}
}

func TestDataOptions(t *testing.T) {
	config := DataConfig{ID: "0003411595", Limit: 250000, Partition: true}

	opts, err := config.options(estat.ReaderOptions{APIKey: "key"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Limit == nil || *opts.Limit != 250000 {
		t.Errorf("Got %v, wanted a limit of 250000", opts.Limit)
	}
	if opts.Strategy != estat.PartitionStrategy {
		t.Errorf("Got %v, wanted %v", opts.Strategy, estat.PartitionStrategy)
	}

	config.Limit = 0
	if opts, _ := config.options(estat.ReaderOptions{}); opts.Limit != nil {
		t.Errorf("Got %v, wanted no limit", *opts.Limit)
	}
}

func TestReadJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	content := "name,stats_data_id,limit,filter\n" +
		"population,0003411595,100,area=13000 cat01=001\n" +
		",0000010101,,\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	jobs, err := readJobs(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Got %v jobs, wanted 2", len(jobs))
	}

	if jobs[1].Name != "0000010101" {
		t.Errorf("Got %v, wanted the table id as name", jobs[1].Name)
	}

	dc := jobs[0].dataConfig(CommonConfig{})
	if dc.ID != "0003411595" || dc.Limit != 100 || len(dc.Filters) != 2 {
		t.Errorf("Got %+v, wanted the job settings", dc)
	}
}

// Returns the same body for every request
type stubFetcher struct {
	body  string
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string, _ url.Values) ([]byte, error) {
	f.calls++
	return []byte(f.body), nil
}

func (f *stubFetcher) Close() {}

const populationJSON = `{"GET_STATS_DATA": {
	"RESULT": {"STATUS": 0, "ERROR_MSG": "正常に終了しました。"},
	"PARAMETER": {"LANG": "J", "STATS_DATA_ID": "0003000001"},
	"STATISTICAL_DATA": {
		"RESULT_INF": {"TOTAL_NUMBER": 2},
		"TABLE_INF": {"@id": "0003000001", "STATISTICS_NAME": "国勢調査"},
		"CLASS_INF": {"CLASS_OBJ": [
			{"@id": "tab", "@name": "表章項目", "CLASS": [
				{"@code": "010", "@name": "世帯数", "@unit": "世帯"},
				{"@code": "020", "@name": "人口", "@unit": "人"}
			]},
			{"@id": "area", "@name": "地域", "CLASS": {"@code": "00000", "@name": "全国", "@level": "1"}}
		]},
		"DATA_INF": {"VALUE": [
			{"@tab": "010", "@area": "00000", "@unit": "世帯", "$": "55704949"},
			{"@tab": "020", "@area": "00000", "@unit": "人", "$": "126146099"}
		]}
	}
}}`

func testReader(t *testing.T, f *stubFetcher) *estat.StatsDataReader {
	opts := estat.DefaultReaderOptions()
	opts.APIKey = "key"
	opts.Fetcher = f

	reader, err := estat.NewStatsDataReader(estat.StatsDataOptions{ReaderOptions: opts, StatsDataID: "0003000001", Limit: estat.Int(10)})
	if err != nil {
		t.Fatal(err)
	}
	return reader
}

func TestDataRead(t *testing.T) {
	type testCase struct {
		splitUnit bool
		wide      bool
		tables    []string
		columns   []string
	}

	cases := []testCase{
		{false, false, []string{"pop"}, []string{"表章項目コード", "地域コード", "単位", "値", "表章項目", "地域", "地域階層レベル"}},
		{false, true, []string{"pop"}, []string{"地域", "世帯数", "人口"}},
		{true, true, []string{"pop_世帯", "pop_人"}, []string{"地域"}},
	}

	for _, c := range cases {
		t.Log("Testing split-unit:", c.splitUnit, "wide:", c.wide)

		config := DataConfig{Name: "pop", SplitUnit: c.splitUnit, Wide: c.wide}
		tables, err := config.read(context.Background(), testReader(t, &stubFetcher{body: populationJSON}))
		if err != nil {
			t.Fatal(err)
		}

		var names []string
		for name, res := range tables {
			names = append(names, name)
			for _, col := range c.columns {
				if !slices.Contains(res.Frame.Names(), col) {
					t.Errorf("Got %v in %s, wanted a column %s", res.Frame.Names(), name, col)
				}
			}
		}
		slices.Sort(names)
		expected := slices.Clone(c.tables)
		slices.Sort(expected)
		if !slices.Equal(names, expected) {
			t.Errorf("Got %v, wanted %v", names, expected)
		}
	}
}

func TestWriteRaw(t *testing.T) {
	f := &stubFetcher{body: populationJSON}
	config := CommonConfig{Dir: t.TempDir()}

	if err := config.writeRaw(context.Background(), "pop", testReader(t, f)); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("Got %v requests, wanted 1", f.calls)
	}

	content, err := os.ReadFile(filepath.Join(config.Dir, "pop.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != populationJSON {
		t.Errorf("Got %s, wanted the response unchanged", content)
	}
}
