package estat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// Root keys of the four e-Stat envelopes
const (
	OpStatsList   = "GET_STATS_LIST"
	OpMetaInfo    = "GET_META_INFO"
	OpStatsData   = "GET_STATS_DATA"
	OpDataCatalog = "GET_DATA_CATALOG"
)

// Returned when a key the reader cannot do without is absent from a response
var ErrMalformedPayload = errors.New("malformed e-Stat payload")

// OneOrMany decodes fields that the API sends either as a single object or as a list of objects
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}

	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}

	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}

// Text is a scalar that is either sent bare ("x", 12, null)
// or wrapped in an object such as {"@code": "00200", "$": "総務省"}
type Text struct {
	Value string
	Code  string
	Valid bool
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] != '{' {
		t.Value, t.Valid = rawString(b)
		return nil
	}

	fields, err := decodeFields(b)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.Key {
		case "$":
			t.Value, t.Valid = rawString(f.Value)
		case "@code", "@no":
			t.Code, _ = rawString(f.Value)
		}
	}
	return nil
}

// Int returns nil if the value is absent or not an integer
func (t Text) Int() *int {
	if !t.Valid {
		return nil
	}
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return nil
	}
	return &n
}

type envelopeResult struct {
	Status   Text `json:"STATUS"`
	ErrorMsg Text `json:"ERROR_MSG"`
	Date     Text `json:"DATE"`
}

type envelopeParameter struct {
	Lang        Text `json:"LANG"`
	DataFormat  Text `json:"DATA_FORMAT"`
	StatsDataID Text `json:"STATS_DATA_ID"`
}

type resultInf struct {
	TotalNumber Text `json:"TOTAL_NUMBER"`
	FromNumber  Text `json:"FROM_NUMBER"`
	ToNumber    Text `json:"TO_NUMBER"`
	NextKey     Text `json:"NEXT_KEY"`
}

func (r *resultInf) UnmarshalJSON(b []byte) error {
	type plain resultInf
	return softDecode(b, (*plain)(r), "RESULT_INF")
}

type tableInf struct {
	ID                 string `json:"@id"`
	StatName           Text   `json:"STAT_NAME"`
	GovOrg             Text   `json:"GOV_ORG"`
	StatisticsName     Text   `json:"STATISTICS_NAME"`
	Title              Text   `json:"TITLE"`
	Cycle              Text   `json:"CYCLE"`
	SurveyDate         Text   `json:"SURVEY_DATE"`
	OpenDate           Text   `json:"OPEN_DATE"`
	SmallArea          Text   `json:"SMALL_AREA"`
	CollectArea        Text   `json:"COLLECT_AREA"`
	MainCategory       Text   `json:"MAIN_CATEGORY"`
	SubCategory        Text   `json:"SUB_CATEGORY"`
	OverallTotalNumber Text   `json:"OVERALL_TOTAL_NUMBER"`
	UpdatedDate        Text   `json:"UPDATED_DATE"`
}

func (t *tableInf) UnmarshalJSON(b []byte) error {
	type plain tableInf
	return softDecode(b, (*plain)(t), "TABLE_INF")
}

// CLASS_OBJ is kept raw so that a single broken class does not fail the whole response
type classInf struct {
	ClassObj json.RawMessage `json:"CLASS_OBJ"`
}

func (c *classInf) UnmarshalJSON(b []byte) error {
	type plain classInf
	return softDecode(b, (*plain)(c), "CLASS_INF")
}

// Decodes an optional block into v. A block that is not an object, or does not
// decode, leaves v at its zero value and is only logged.
func softDecode(b []byte, v any, key string) error {
	kind := rawKind(b)
	if kind != '{' {
		if kind != 'n' {
			slog.Warn(fmt.Sprintf("Ignoring %s, expected an object, got %s", key, bytes.TrimSpace(b)))
		}
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		slog.Warn(fmt.Sprintf("Ignoring %s: %v", key, err))
	}
	return nil
}

type dataInf struct {
	Note  json.RawMessage `json:"NOTE"`
	Value json.RawMessage `json:"VALUE"`
}

type statisticalData struct {
	ResultInf resultInf `json:"RESULT_INF"`
	TableInf  tableInf  `json:"TABLE_INF"`
	ClassInf  *classInf `json:"CLASS_INF"`
	DataInf   *dataInf  `json:"DATA_INF"`
}

type metadataInf struct {
	TableInf tableInf  `json:"TABLE_INF"`
	ClassInf *classInf `json:"CLASS_INF"`
}

type listInf struct {
	Number         Text            `json:"NUMBER"`
	ResultInf      resultInf       `json:"RESULT_INF"`
	TableInf       json.RawMessage `json:"TABLE_INF"`
	DataCatalogInf json.RawMessage `json:"DATA_CATALOG_INF"`
}

type envelopeBody struct {
	Result             envelopeResult    `json:"RESULT"`
	Parameter          envelopeParameter `json:"PARAMETER"`
	DatalistInf        *listInf          `json:"DATALIST_INF"`
	MetadataInf        *metadataInf      `json:"METADATA_INF"`
	StatisticalData    *statisticalData  `json:"STATISTICAL_DATA"`
	DataCatalogListInf *listInf          `json:"DATA_CATALOG_LIST_INF"`
}

// Decodes the body under the operation key.
// A missing operation key is reported with ok == false, invalid JSON as an error.
func decodeEnvelope(op string, raw []byte) (body *envelopeBody, ok bool, err error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, false, fmt.Errorf("could not decode %s envelope: %w", op, err)
	}

	inner, found := root[op]
	if !found || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return &envelopeBody{}, false, nil
	}

	body = &envelopeBody{}
	if err := json.Unmarshal(inner, body); err != nil {
		return nil, false, fmt.Errorf("could not decode %s envelope: %w", op, err)
	}
	return body, true, nil
}

// Common entry point for the readers, which need the operation key to be there
func requireEnvelope(op string, raw []byte) (*envelopeBody, error) {
	body, ok, err := decodeEnvelope(op, raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedPayload, op)
	}
	return body, nil
}
