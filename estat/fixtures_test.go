package estat

import (
	"context"
	"errors"
	"net/url"

	"github.com/go-gota/gota/dataframe"
)

// Serves the responses in order, repeating the last one
type fakeFetcher struct {
	responses []string
	fail      map[int]bool

	urls   []string
	params []url.Values
	closed int
}

func (f *fakeFetcher) Fetch(_ context.Context, u string, params url.Values) ([]byte, error) {
	n := len(f.urls)
	f.urls = append(f.urls, u)
	f.params = append(f.params, params)

	if f.fail[n] {
		return nil, errors.New("connection reset")
	}
	i := min(n, len(f.responses)-1)
	return []byte(f.responses[i]), nil
}

func (f *fakeFetcher) Close() {
	f.closed++
}

func testOptions(f *fakeFetcher) ReaderOptions {
	opts := DefaultReaderOptions()
	opts.APIKey = "test-app-id"
	opts.Fetcher = f
	return opts
}

func column(df dataframe.DataFrame, name string) []string {
	return df.Col(name).Records()
}

const statsDataJSON = `{"GET_STATS_DATA": {
	"RESULT": {"STATUS": 0, "ERROR_MSG": "正常に終了しました。", "DATE": "2024-01-01T00:00:00.000+09:00"},
	"PARAMETER": {"LANG": "J", "STATS_DATA_ID": "0003000001", "DATA_FORMAT": "J"},
	"STATISTICAL_DATA": {
		"RESULT_INF": {"TOTAL_NUMBER": 3, "FROM_NUMBER": 1, "TO_NUMBER": 3},
		"TABLE_INF": {
			"@id": "0003000001",
			"STAT_NAME": {"@code": "00200521", "$": "国勢調査"},
			"GOV_ORG": {"@code": "00200", "$": "総務省"},
			"STATISTICS_NAME": "令和2年国勢調査",
			"TITLE": {"@no": "001", "$": "人口"},
			"CYCLE": "-",
			"OVERALL_TOTAL_NUMBER": 3
		},
		"CLASS_INF": {"CLASS_OBJ": [
			{"@id": "tab", "@name": "表章項目", "CLASS": {"@code": "020", "@name": "人口", "@level": "", "@unit": "人"}},
			{"@id": "area", "@name": "地域", "CLASS": [
				{"@code": "00000", "@name": "全国", "@level": "1"},
				{"@code": "13000", "@name": "東京都", "@level": "2", "@parentCode": "00000"}
			]},
			{"@id": "time", "@name": "時間軸", "CLASS": {"@code": "2020000000", "@name": "2020年", "@level": "1"}}
		]},
		"DATA_INF": {
			"NOTE": {"@char": "***", "$": "該当データなし"},
			"VALUE": [
				{"@tab": "020", "@area": "00000", "@time": "2020000000", "@unit": "人", "$": "126146099"},
				{"@tab": "020", "@area": "13000", "@time": "2020000000", "@unit": "人", "$": "14047594"},
				{"@tab": "020", "@area": "99999", "@time": "2020000000", "@unit": "人", "$": "***"}
			]
		}
	}
}}`

const statsDataNoDataJSON = `{"GET_STATS_DATA": {
	"RESULT": {"STATUS": 1, "ERROR_MSG": "正常に終了しましたが、該当データはありませんでした。", "DATE": "2024-01-01T00:00:00.000+09:00"},
	"PARAMETER": {"LANG": "J", "STATS_DATA_ID": "0003000001", "DATA_FORMAT": "J"},
	"STATISTICAL_DATA": {"RESULT_INF": {"TOTAL_NUMBER": 0}}
}}`

const metaInfoJSON = `{"GET_META_INFO": {
	"RESULT": {"STATUS": "0", "ERROR_MSG": "正常に終了しました。", "DATE": "2024-01-01T00:00:00.000+09:00"},
	"PARAMETER": {"LANG": "J", "STATS_DATA_ID": "0003000001", "DATA_FORMAT": "J"},
	"METADATA_INF": {
		"TABLE_INF": {"@id": "0003000001", "STATISTICS_NAME": "令和2年国勢調査", "TITLE": "人口", "GOV_ORG": "総務省", "CYCLE": "5年"},
		"CLASS_INF": {"CLASS_OBJ": [
			{"@id": "tab", "@name": "表章項目", "CLASS": {"@code": "020", "@name": "人口", "@level": "", "@unit": "人"}},
			{"@id": "area", "@name": "地域", "CLASS": [
				{"@code": "00000", "@name": "全国", "@level": "1"},
				{"@code": "13000", "@name": "東京都", "@level": "2", "@parentCode": "00000"},
				{"@code": "14000", "@name": "神奈川県", "@level": "2", "@parentCode": "00000"}
			]},
			{"@id": "time", "@name": "時間軸", "CLASS": [
				{"@code": "2015000000", "@name": "2015年", "@level": "1"},
				{"@code": "2016000000", "@name": "2016年", "@level": "1"},
				{"@code": "2017000000", "@name": "2017年", "@level": "1"},
				{"@code": "2020000000", "@name": "2020年", "@level": "1"}
			]}
		]}
	}
}}`

const statsListJSON = `{"GET_STATS_LIST": {
	"RESULT": {"STATUS": 0, "ERROR_MSG": "正常に終了しました。", "DATE": "2024-01-01T00:00:00.000+09:00"},
	"PARAMETER": {"LANG": "J", "DATA_FORMAT": "J"},
	"DATALIST_INF": {
		"NUMBER": 2,
		"RESULT_INF": {"FROM_NUMBER": 1, "TO_NUMBER": 2},
		"TABLE_INF": [
			{"@id": "0003000001", "STAT_NAME": {"@code": "00200521", "$": "国勢調査"}, "OVERALL_TOTAL_NUMBER": 3, "TITLE": {"@no": "001", "$": "人口"}},
			{"@id": "0003000002", "STAT_NAME": {"@code": "00200521", "$": "国勢調査"}, "OVERALL_TOTAL_NUMBER": 47, "TITLE": "世帯"}
		]
	}
}}`

const dataCatalogJSON = `{"GET_DATA_CATALOG": {
	"RESULT": {"STATUS": 0, "ERROR_MSG": "正常に終了しました。", "DATE": "2024-01-01T00:00:00.000+09:00"},
	"PARAMETER": {"LANG": "J", "DATA_FORMAT": "J"},
	"DATA_CATALOG_LIST_INF": {
		"NUMBER": 2,
		"RESULT_INF": {"FROM_NUMBER": 1, "TO_NUMBER": 2},
		"DATA_CATALOG_INF": [
			{
				"@id": "000001",
				"DATASET": {"STAT_NAME": {"@code": "00200521", "$": "国勢調査"}, "TITLE": {"NAME": "人口等基本集計"}},
				"RESOURCES": {"RESOURCE": [
					{"@id": "R1", "TITLE": {"NAME": "表1"}, "URL": "https://www.e-stat.go.jp/r1.csv", "FORMAT": "CSV"},
					{"@id": "R2", "TITLE": {"NAME": "表2"}, "URL": "https://www.e-stat.go.jp/r2.xlsx", "FORMAT": "XLS"}
				]}
			},
			{
				"@id": "000002",
				"DATASET": {"STAT_NAME": {"@code": "00200522", "$": "住宅・土地統計調査"}, "TITLE": {"NAME": "住宅数"}}
			}
		]
	}
}}`
