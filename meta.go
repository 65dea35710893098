package main

import (
	"context"
	"fmt"
	"log/slog"

	"estat_reader/estat"
	"estat_reader/utils"
)

type MetaConfig struct {
	CommonConfig
	ID        string `long:"id" required:"true" description:"Statistics table id (statsDataId)"`
	All       bool   `long:"all" description:"Write every classification, not only the largest one"`
	Hierarchy string `long:"hierarchy" description:"Write the level hierarchy of this classification id instead"`
	FillNA    bool   `long:"fillna" description:"Fill skipped hierarchy levels with the nearest shallower code"`
	MaxLevel  int    `long:"max-level" default:"0" description:"Keep only hierarchy levels up to this one"`
	Bare      bool   `long:"bare" description:"Do not prefix the columns with the classification"`
	Raw       bool   `long:"raw" description:"Write the untouched JSON response to <dir>/<id>_meta.json instead of tables"`
}

func (config *MetaConfig) Execute(_ []string) error {
	defer utils.SendEmailOnPanic("meta", config.Email)

	if err := config.setup(config.ID, "meta"); err != nil {
		return err
	}

	reader, err := estat.NewMetaInfoReader(estat.MetaInfoOptions{
		ReaderOptions:     config.readerOptions(config.limiter()),
		StatsDataID:       config.ID,
		BareColnames:      config.Bare,
		HasLevelHierarchy: config.All,
		Hierarchy:         estat.HierarchyOptions{FillNA: config.FillNA, MaxLevel: config.MaxLevel},
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Raw {
		return config.writeRaw(ctx, config.ID+"_meta", reader)
	}

	tables := map[string]estat.Result{}
	switch {
	case config.Hierarchy != "":
		res, err := reader.ReadHierarchy(ctx, config.Hierarchy)
		if err != nil {
			return err
		}
		logStatus(res.Meta)
		tables[config.ID+"_"+config.Hierarchy+"_hierarchy"] = res

	case config.All:
		classes, meta, err := reader.ReadClassObjects(ctx)
		if err != nil {
			return err
		}
		logStatus(meta)
		for _, c := range classes {
			tables[config.ID+"_"+c.ID] = estat.Result{Frame: c.Frame, Meta: meta}
			if c.Hierarchy != nil {
				tables[config.ID+"_"+c.ID+"_hierarchy"] = estat.Result{Frame: *c.Hierarchy, Meta: meta}
			}
		}

	default:
		res, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		logStatus(res.Meta)
		tables[config.ID] = res
	}

	slog.Info(fmt.Sprintf("Writing %d classification tables of %s", len(tables), config.ID))
	return config.write(ctx, tables)
}
