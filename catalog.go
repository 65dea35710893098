package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"estat_reader/estat"
	"estat_reader/utils"
)

type CatalogConfig struct {
	CommonConfig
	SearchWord    string `long:"search" description:"Keywords, combined with AND, OR or NOT"`
	SurveyYears   string `long:"survey-years" description:"Survey date, as yyyy, yyyymm or yyyymm-yyyymm"`
	OpenYears     string `long:"open-years" description:"Publication date, as yyyy, yyyymm or yyyymm-yyyymm"`
	StatsField    string `long:"field" description:"Two digit field code, or four digits for a subfield"`
	StatsCode     string `long:"code" description:"Five digit organization code, or eight digits for a government statistic"`
	DataType      string `long:"type" choice:"XLS" choice:"CSV" choice:"PDF" choice:"XML" choice:"XLS_REP" choice:"DB" description:"Only resources of this type"`
	CatalogID     string `long:"catalog-id" description:"Dataset id"`
	ResourceID    string `long:"resource-id" description:"Resource id"`
	Start         int    `long:"start" default:"0" description:"Position of the first record"`
	UpdatedWithin string `long:"updated-within" description:"Only datasets updated within this ISO-8601 period, e.g. P1M"`
	Name          string `long:"name" default:"data_catalog" description:"Name of the output table"`
	Raw           bool   `long:"raw" description:"Write the untouched JSON response to <dir>/<name>.json instead of a table"`
}

func (config *CatalogConfig) Execute(_ []string) error {
	defer utils.SendEmailOnPanic("catalog", config.Email)

	if err := config.setup(config.Name, "catalog"); err != nil {
		return err
	}
	updated, err := updatedSince(config.UpdatedWithin, time.Now())
	if err != nil {
		return err
	}

	reader, err := estat.NewDataCatalogReader(estat.DataCatalogOptions{
		ReaderOptions: config.readerOptions(config.limiter()),
		SearchWord:    config.SearchWord,
		SurveyYears:   config.SurveyYears,
		OpenYears:     config.OpenYears,
		StatsField:    config.StatsField,
		StatsCode:     config.StatsCode,
		DataType:      config.DataType,
		CatalogID:     config.CatalogID,
		ResourceID:    config.ResourceID,
		StartPosition: config.Start,
		UpdatedDate:   updated,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Raw {
		return config.writeRaw(ctx, config.Name, reader)
	}
	res, err := reader.Read(ctx)
	if err != nil {
		utils.SendEmailOnError("catalog", err, config.Email)
		return err
	}
	logStatus(res.Meta)
	slog.Info(fmt.Sprintf("Found %d resources", res.Frame.Nrow()))

	return config.write(ctx, map[string]estat.Result{config.Name: res})
}
