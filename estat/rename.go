package estat

import (
	"regexp"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/unicode/norm"
)

type substitution struct {
	from string
	to   string
}

// Applied to the end of a column name, first match wins.
// parentCode has to be tried before code.
var suffixSubstitutions = []substitution{
	{"parentCode", "親コード"},
	{"code", "コード"},
	{"name", ""},
	{"level", "階層レベル"},
	{"unit", "単位"},
	{"value", "値"},
	{"addInf", "追加情報"},
	{"annotation", "注釈記号"},
}

// Applied to whole column names only
var dimensionWords = []substitution{
	{"tab", "表章項目"},
	{"time", "時間軸"},
	{"area", "地域"},
	{"cat", "分類"},
}

var catPattern = regexp.MustCompile(`^cat(\d{2})$`)

// ColnameToJapanese localizes a single machine column name,
// e.g. "categorycode" -> "categoryコード", "tabvalue" -> "tab値", "tab" -> "表章項目".
// Names without a known token are returned unchanged.
func ColnameToJapanese(name string) string {
	for _, s := range suffixSubstitutions {
		if strings.HasSuffix(name, s.from) {
			return strings.TrimSuffix(name, s.from) + s.to
		}
	}
	for _, s := range dimensionWords {
		if name == s.from {
			return s.to
		}
	}
	if m := catPattern.FindStringSubmatch(name); m != nil {
		return "分類" + m[1]
	}
	return name
}

// Default display name of a dimension with no entry in the class name map
func dimensionDisplayName(id string) (string, bool) {
	for _, s := range dimensionWords {
		if id == s.from {
			return s.to, true
		}
	}
	if m := catPattern.FindStringSubmatch(id); m != nil {
		return "分類" + m[1], true
	}
	return "", false
}

// Renamer rewrites machine column names ("tab_code", "cat01_name") into
// display names ("表章項目コード", "用途分類") when Localize is set.
type Renamer struct {
	// Classification id -> display name, as found in CLASS_OBJ
	ClassNames map[string]string
	Localize   bool
}

func (r Renamer) Colname(name string) string {
	if !r.Localize {
		return name
	}
	if id, suffix, ok := strings.Cut(name, "_"); ok && suffix != "" {
		if display, found := r.display(id); found {
			return ColnameToJapanese(display + suffix)
		}
	}
	return ColnameToJapanese(name)
}

func (r Renamer) display(id string) (string, bool) {
	if name, ok := r.ClassNames[id]; ok && name != "" {
		return norm.NFKC.String(name), true
	}
	return dimensionDisplayName(id)
}

// Rename applies Colname to every column of df
func (r Renamer) Rename(df dataframe.DataFrame) dataframe.DataFrame {
	if !r.Localize || df.Err != nil || df.Ncol() == 0 {
		return df
	}

	mapping := make(map[string]string, df.Ncol())
	for _, name := range df.Names() {
		mapping[name] = r.Colname(name)
	}
	return renameColumns(df, mapping)
}
