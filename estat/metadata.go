package estat

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// A missing-value marker declared in DATA_INF.NOTE
type Note struct {
	Char        string
	Description string
}

type ClassName struct {
	ID   string
	Name string
}

// Metadata holds the envelope fields of the last response.
// Absent fields are left as nil or empty strings.
type Metadata struct {
	Status     *int
	ErrorMsg   string
	Date       string
	Lang       string
	DataFormat string

	Number      *int
	FromNumber  *int
	ToNumber    *int
	TotalNumber *int
	NextKey     *int

	StatsDataID        string
	StatName           string
	GovOrg             string
	StatisticsName     string
	Title              string
	Cycle              string
	SurveyDate         string
	OpenDate           string
	SmallArea          string
	CollectArea        string
	MainCategory       string
	SubCategory        string
	OverallTotalNumber *int
	UpdatedDate        string

	// Classification ids and names in CLASS_OBJ order
	ClassNames []ClassName
	Notes      []Note
}

// True if the API reported STATUS 0
func (m Metadata) OK() bool {
	return m.Status != nil && *m.Status == 0
}

func (m Metadata) ClassNameMap() map[string]string {
	out := make(map[string]string, len(m.ClassNames))
	for _, c := range m.ClassNames {
		out[c.ID] = c.Name
	}
	return out
}

// Display name of the statistics table, "<STATISTICS_NAME>_<TITLE>[_<CYCLE>]_<GOV_ORG>"
func (m Metadata) DataName() string {
	parts := []string{m.StatisticsName, m.Title}
	if m.Cycle != "" && m.Cycle != "-" {
		parts = append(parts, m.Cycle)
	}
	parts = append(parts, m.GovOrg)
	return strings.ReplaceAll(strings.Join(parts, "_"), " ", "_")
}

// Total number of records the table holds, preferring the table level count
func (m Metadata) Total() (int, bool) {
	if m.OverallTotalNumber != nil {
		return *m.OverallTotalNumber, true
	}
	if m.TotalNumber != nil {
		return *m.TotalNumber, true
	}
	return 0, false
}

// ExtractMetadata reads the envelope fields of a response for the given operation.
// Only undecodable JSON is an error, missing keys are left empty.
func ExtractMetadata(op string, raw []byte) (Metadata, error) {
	body, _, err := decodeEnvelope(op, raw)
	if err != nil {
		return Metadata{}, err
	}
	return body.metadata(), nil
}

func (b *envelopeBody) metadata() Metadata {
	meta := Metadata{
		Status:      b.Result.Status.Int(),
		ErrorMsg:    b.Result.ErrorMsg.Value,
		Date:        b.Result.Date.Value,
		Lang:        b.Parameter.Lang.Value,
		DataFormat:  b.Parameter.DataFormat.Value,
		StatsDataID: b.Parameter.StatsDataID.Value,
	}

	switch {
	case b.DatalistInf != nil:
		meta.setList(b.DatalistInf)
	case b.DataCatalogListInf != nil:
		meta.setList(b.DataCatalogListInf)
	case b.MetadataInf != nil:
		meta.setTable(b.MetadataInf.TableInf)
		meta.ClassNames = classNames(b.MetadataInf.ClassInf)
	case b.StatisticalData != nil:
		sd := b.StatisticalData
		meta.setResultInf(sd.ResultInf)
		meta.setTable(sd.TableInf)
		meta.ClassNames = classNames(sd.ClassInf)
		if sd.DataInf != nil {
			meta.Notes = decodeNotes(sd.DataInf.Note)
		}
	}
	return meta
}

func (m *Metadata) setList(l *listInf) {
	m.Number = l.Number.Int()
	m.setResultInf(l.ResultInf)
}

func (m *Metadata) setResultInf(r resultInf) {
	m.TotalNumber = r.TotalNumber.Int()
	m.FromNumber = r.FromNumber.Int()
	m.ToNumber = r.ToNumber.Int()
	m.NextKey = r.NextKey.Int()
}

func (m *Metadata) setTable(t tableInf) {
	if t.ID != "" {
		m.StatsDataID = t.ID
	}
	m.StatName = t.StatName.Value
	m.GovOrg = t.GovOrg.Value
	m.StatisticsName = t.StatisticsName.Value
	m.Title = t.Title.Value
	m.Cycle = t.Cycle.Value
	m.SurveyDate = t.SurveyDate.Value
	m.OpenDate = t.OpenDate.Value
	m.SmallArea = t.SmallArea.Value
	m.CollectArea = t.CollectArea.Value
	m.MainCategory = t.MainCategory.Value
	m.SubCategory = t.SubCategory.Value
	m.OverallTotalNumber = t.OverallTotalNumber.Int()
	m.UpdatedDate = t.UpdatedDate.Value
}

func classNames(ci *classInf) []ClassName {
	if ci == nil {
		return nil
	}
	items, err := rawItems(ci.ClassObj)
	if err != nil {
		return nil
	}

	var out []ClassName
	for _, item := range items {
		var obj struct {
			ID   string `json:"@id"`
			Name string `json:"@name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil || obj.ID == "" {
			continue
		}
		out = append(out, ClassName{ID: obj.ID, Name: obj.Name})
	}
	return out
}

func decodeNotes(raw json.RawMessage) []Note {
	items, err := rawItems(raw)
	if err != nil {
		slog.Warn("Could not decode NOTE, no missing-value markers will be applied: " + err.Error())
		return nil
	}

	var notes []Note
	for _, item := range items {
		var n struct {
			Char string `json:"@char"`
			Desc Text   `json:"$"`
		}
		if err := json.Unmarshal(item, &n); err != nil || n.Char == "" {
			continue
		}
		notes = append(notes, Note{Char: n.Char, Description: n.Desc.Value})
	}
	return notes
}
