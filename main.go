package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type CmdArgs struct {
	List    ListConfig    `command:"list" description:"Search statistics tables (getStatsList)"`
	Meta    MetaConfig    `command:"meta" description:"Read the classifications of a table (getMetaInfo)"`
	Data    DataConfig    `command:"data" description:"Read the observations of a table (getStatsData)"`
	Catalog CatalogConfig `command:"catalog" description:"List downloadable files and databases (getDataCatalog)"`
	Batch   BatchConfig   `command:"batch" description:"Read several tables listed in a CSV file concurrently"`
}

func main() {
	// The application id can also be given with --api-key or --dotenv
	if err := godotenv.Load(); err != nil {
		slog.Warn(fmt.Sprint("Could not load .env: ", err))
	}

	// NOTE: each command's Execute method is automatically called
	// by go-flags while parsing the cmd
	_, err := flags.Parse(&CmdArgs{})
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return
			}
		}
		fmt.Println("See 'estat_reader -h' for help")
		os.Exit(1)
	}
}
