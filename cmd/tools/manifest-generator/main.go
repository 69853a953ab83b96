// cmd/tools/manifest-generator/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"powerbi-tom-skill/internal/common/config"
	powerbitom "powerbi-tom-skill/internal/skills/powerbi-tom"
	"powerbi-tom-skill/pkg/registry"
)

const defaultManifestPath = "configs/skill-manifest.json"

func main() {
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	outPath := generateCmd.String("out", defaultManifestPath, "Path of the manifest to write")
	version := generateCmd.String("version", "1.0.0", "Manifest version")
	configPath := generateCmd.String("config", "", "Optional config file for per-function enabled/timeout")

	validatePath := validateCmd.String("path", defaultManifestPath, "Path to manifest file")

	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateCmd.Parse(os.Args[2:])
		if err := generate(*outPath, *version, *configPath); err != nil {
			fmt.Printf("Error generating manifest: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote manifest: %s\n", *outPath)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		m, err := registry.LoadManifest(*validatePath)
		if err != nil {
			fmt.Printf("Failed to load manifest: %v\n", err)
			os.Exit(1)
		}
		if err := m.Validate(); err != nil {
			fmt.Printf("Manifest validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Manifest validation passed. Found %d functions.\n", len(m.Functions))

	case "help":
		fallthrough
	default:
		help(os.Stdout)
	}
}

func generate(path, version, configPath string) error {
	var app *config.Config
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		app = cfg
	}

	m := powerbitom.Manifest(app, version, time.Now())
	if err := m.Validate(); err != nil {
		return fmt.Errorf("generated manifest is invalid: %w", err)
	}
	return registry.SaveManifest(m, path)
}

const usage = `
Usage: manifest-generator <command> [flags]

Commands:
  generate  Write the skill manifest from the function catalog
  validate  Validate a manifest file
  help      Show this help message

Examples:
  manifest-generator generate -out configs/skill-manifest.json -version 1.0.0
  manifest-generator generate -config configs/config.yaml
  manifest-generator validate -path configs/skill-manifest.json

Use 'manifest-generator <command> -h' for more information about a command.
`

func help(w io.Writer) {
	fmt.Fprint(w, usage)
}
