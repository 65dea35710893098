package estat

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const BaseURL = "https://api.e-stat.go.jp/rest/3.0/app/json"

// Maximum number of records the API returns in a single request
const PageCap = 100000

// Default for replaceSpChar, special characters are replaced with null
const DefaultReplaceSpChar = 2

type Endpoint string

const (
	EndpointStatsList   Endpoint = "getStatsList"
	EndpointMetaInfo    Endpoint = "getMetaInfo"
	EndpointStatsData   Endpoint = "getStatsData"
	EndpointDataCatalog Endpoint = "getDataCatalog"
)

// Builds the endpoint URL, unknown endpoints fall back to getStatsData
func EndpointURL(base string, e Endpoint) string {
	if base == "" {
		base = BaseURL
	}
	switch e {
	case EndpointStatsList, EndpointMetaInfo, EndpointStatsData, EndpointDataCatalog:
	default:
		e = EndpointStatsData
	}
	return strings.TrimRight(base, "/") + "/" + string(e)
}

// Dimension is the short id of a classification, e.g. "tab", "area" or "cat01"
type Dimension string

const (
	DimTab  Dimension = "tab"
	DimTime Dimension = "time"
	DimArea Dimension = "area"
)

// Returns the n-th generic category dimension, "cat01" to "cat15"
func Cat(n int) Dimension {
	return Dimension(fmt.Sprintf("cat%02d", n))
}

// Dimensions in the order the API documents their filters
func Dimensions() []Dimension {
	dims := []Dimension{DimTab, DimTime, DimArea}
	for i := 1; i <= 15; i++ {
		dims = append(dims, Cat(i))
	}
	return dims
}

func (d Dimension) Valid() bool {
	return slices.Contains(Dimensions(), d)
}

// "tab" -> "Tab", "cat01" -> "Cat01"
func (d Dimension) wireName() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Name of the query parameter that restricts the dimension to a set of codes
func (d Dimension) CodeParam() string {
	return "cd" + d.wireName()
}

// Filter narrows one dimension of a getStatsData query.
// Code accepts a comma separated list of codes.
type Filter struct {
	Level string
	Code  string
	From  string
	To    string
}

type Lang string

const (
	LangJapanese Lang = "J"
	LangEnglish  Lang = "E"
)

// A single query parameter and the predicate it has to satisfy to be sent
type param struct {
	name  string
	value string
	valid func(string) bool
}

func anyValue(string) bool { return true }

func oneOf(allowed ...string) func(string) bool {
	return func(s string) bool {
		return slices.Contains(allowed, s)
	}
}

func intBetween(lo, hi int) func(string) bool {
	return func(s string) bool {
		n, err := strconv.Atoi(s)
		return err == nil && n >= lo && n <= hi
	}
}

func positiveInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

var yesNo = oneOf("Y", "N")

// Zero means unset
func intField(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Keeps only the parameters that are set and valid, always adding appId.
// Invalid values are dropped silently, the API ignores unknown parameters as well.
func buildParams(apiKey string, lang Lang, table []param) url.Values {
	values := url.Values{}
	values.Set("appId", apiKey)
	if lang == LangEnglish {
		values.Set("lang", string(LangEnglish))
	}

	for _, p := range table {
		if p.value == "" {
			continue
		}
		if p.valid != nil && !p.valid(p.value) {
			continue
		}
		values.Set(p.name, p.value)
	}
	return values
}

// Free text is normalized so that full-width and half-width forms match the same tables
func normalizeSearchWord(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

type StatsListOptions struct {
	ReaderOptions

	SurveyYears       string
	OpenYears         string
	StatsField        string
	StatsCode         string
	SearchWord        string
	SearchKind        int // 1 or 2
	CollectArea       int // 1 to 3
	ExplanationGetFlg string
	StatsNameList     string // only "Y"
	StartPosition     int
	Limit             int
	UpdatedDate       string
}

func (o StatsListOptions) Params() url.Values {
	return buildParams(o.APIKey, o.Lang, []param{
		{"surveyYears", o.SurveyYears, anyValue},
		{"openYears", o.OpenYears, anyValue},
		{"statsField", o.StatsField, anyValue},
		{"statsCode", o.StatsCode, anyValue},
		{"searchWord", normalizeSearchWord(o.SearchWord), anyValue},
		{"searchKind", intField(o.SearchKind), oneOf("1", "2")},
		{"collectArea", intField(o.CollectArea), intBetween(1, 3)},
		{"explanationGetFlg", o.ExplanationGetFlg, yesNo},
		{"statsNameList", o.StatsNameList, oneOf("Y")},
		{"startPosition", intField(o.StartPosition), positiveInt},
		{"limit", intField(o.Limit), positiveInt},
		{"updatedDate", o.UpdatedDate, anyValue},
	})
}

type MetaInfoOptions struct {
	ReaderOptions

	StatsDataID       string
	ExplanationGetFlg string

	// Leave class table columns unprefixed ("code", "name") instead of "<id>_code"
	BareColnames bool
	// Return the hierarchy chain instead of the flat table for hierarchical classes
	HasLevelHierarchy bool
	Hierarchy         HierarchyOptions
}

func (o MetaInfoOptions) Params() url.Values {
	return buildParams(o.APIKey, o.Lang, []param{
		{"statsDataId", o.StatsDataID, anyValue},
		{"explanationGetFlg", o.ExplanationGetFlg, yesNo},
	})
}

// Which pagination strategy to use for tables above PageCap
type Strategy int

const (
	TokenStrategy Strategy = iota
	PartitionStrategy
)

type StatsDataOptions struct {
	ReaderOptions

	StatsDataID string
	Filters     map[Dimension]Filter

	StartPosition int
	// nil asks for the table size first, values above PageCap page through the table
	Limit *int

	MetaGetFlg        string
	CntGetFlg         string
	ExplanationGetFlg string
	AnnotationGetFlg  string
	// 0 to 3, nil sends DefaultReplaceSpChar
	ReplaceSpChar    *int
	SectionHeaderFlg int

	// Sentinel used for missing values, nil stores them as NA
	NAValue  *float64
	Strategy Strategy
}

func (o StatsDataOptions) Params() url.Values {
	replace := DefaultReplaceSpChar
	if o.ReplaceSpChar != nil {
		replace = *o.ReplaceSpChar
	}

	table := []param{{"statsDataId", o.StatsDataID, anyValue}}
	for _, dim := range Dimensions() {
		f, ok := o.Filters[dim]
		if !ok {
			continue
		}
		w := dim.wireName()
		table = append(table,
			param{"lv" + w, f.Level, anyValue},
			param{"cd" + w, f.Code, anyValue},
			param{"cd" + w + "From", f.From, anyValue},
			param{"cd" + w + "To", f.To, anyValue},
		)
	}

	pageSize, _, _ := o.pageLimits()
	table = append(table,
		param{"startPosition", intField(o.StartPosition), positiveInt},
		param{"limit", intField(pageSize), positiveInt},
		param{"metaGetFlg", o.MetaGetFlg, yesNo},
		param{"cntGetFlg", o.CntGetFlg, yesNo},
		param{"explanationGetFlg", o.ExplanationGetFlg, yesNo},
		param{"annotationGetFlg", o.AnnotationGetFlg, yesNo},
		param{"replaceSpChar", strconv.Itoa(replace), intBetween(0, 3)},
		param{"sectionHeaderFlg", intField(o.SectionHeaderFlg), oneOf("1", "2")},
	)
	return buildParams(o.APIKey, o.Lang, table)
}

// Translates the configured limit into the page size sent to the API and the
// total number of records to collect. A zero total means no cap, countFirst means that
// the table size has to be asked for first.
func (o StatsDataOptions) pageLimits() (pageSize, total int, countFirst bool) {
	if o.Limit == nil || *o.Limit <= 0 {
		return 0, 0, true
	}
	if *o.Limit <= PageCap {
		return *o.Limit, *o.Limit, false
	}
	return PageCap, *o.Limit, false
}

type DataCatalogOptions struct {
	ReaderOptions

	SurveyYears       string
	OpenYears         string
	StatsField        string
	StatsCode         string
	SearchWord        string
	CollectArea       int // 1 to 3
	ExplanationGetFlg string
	DataType          string
	StartPosition     int
	CatalogID         string
	ResourceID        string
	UpdatedDate       string
}

func (o DataCatalogOptions) Params() url.Values {
	return buildParams(o.APIKey, o.Lang, []param{
		{"surveyYears", o.SurveyYears, anyValue},
		{"openYears", o.OpenYears, anyValue},
		{"statsField", o.StatsField, anyValue},
		{"statsCode", o.StatsCode, anyValue},
		{"searchWord", normalizeSearchWord(o.SearchWord), anyValue},
		{"collectArea", intField(o.CollectArea), intBetween(1, 3)},
		{"explanationGetFlg", o.ExplanationGetFlg, yesNo},
		{"dataType", o.DataType, oneOf("XLS", "CSV", "PDF", "XML", "XLS_REP", "DB")},
		{"startPosition", intField(o.StartPosition), positiveInt},
		{"catalogId", o.CatalogID, anyValue},
		{"resourceId", o.ResourceID, anyValue},
		{"updatedDate", o.UpdatedDate, anyValue},
	})
}

// Returns a pointer to n, for the optional integer options
func Int(n int) *int {
	return &n
}
