package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"reflect"

	"github.com/chrissnell/quenchfinder/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	ok := compareFinder(yamlConfig.Finder, sqliteConfig.Finder)
	ok = compare("Catalog", yamlConfig.Catalog, sqliteConfig.Catalog) && ok
	ok = compare("SQLite storage", yamlConfig.Storage.SQLite, sqliteConfig.Storage.SQLite) && ok
	ok = compare("TimescaleDB storage", yamlConfig.Storage.TimescaleDB, sqliteConfig.Storage.TimescaleDB) && ok
	ok = compare("Server", yamlConfig.Server, sqliteConfig.Server) && ok

	if !ok {
		fmt.Println("\nConfigurations differ")
		os.Exit(1)
	}
	fmt.Println("\nTest completed!")
}

func compareFinder(yaml, sqlite config.FinderData) bool {
	tolerance := 0.000001
	if math.Abs(yaml.MassLimit-sqlite.MassLimit) < tolerance {
		sqlite.MassLimit = yaml.MassLimit
	}
	return compare("Finder", yaml, sqlite)
}

func compare(name string, yaml, sqlite any) bool {
	if reflect.DeepEqual(yaml, sqlite) {
		fmt.Printf("✓ %s matches\n", name)
		return true
	}
	fmt.Printf("✗ %s differs\n", name)
	fmt.Printf("  YAML:   %+v\n", yaml)
	fmt.Printf("  SQLite: %+v\n", sqlite)
	return false
}
