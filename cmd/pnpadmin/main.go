// Package main is the entry point for pnpadmin, the model-admin API
// server. A YAML model document describes the exposed models; the server
// generates the REST surface from it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pnpstats/adminapi/bootstrap"
	"github.com/pnpstats/adminapi/core/schema"
	"github.com/pnpstats/adminapi/web"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "pnpadmin.yaml", "Path to configuration file")
	specPath := flag.String("spec", "", "Path to the model document (overrides config)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	validate := flag.Bool("validate", false, "Validate the model document and exit")
	hotReload := flag.Bool("hot-reload", false, "Watch the model document and reload on change")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pnpadmin %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if *validate {
		path := *specPath
		if path == "" {
			path = "api.yml"
		}
		doc, err := schema.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Model document invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Model document valid\n")
		fmt.Printf("  Models: %d\n", len(doc.Models))
		for _, key := range doc.Keys() {
			fmt.Printf("  %s -> /%s/\n", key, doc.Models[key].Prefix)
		}
		os.Exit(0)
	}

	web.Version = version

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: *configPath,
		SpecPath:   *specPath,
		HotReload:  *hotReload,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
