// modeltool is a CLI utility for inspecting and indexing Vision engine .model files.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/vismodel/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = run(command, args, 1, cmdInfo)
	case "materials", "mat":
		err = run(command, args, 1, cmdMaterials)
	case "dump":
		err = run(command, args, 1, cmdDump)
	case "check":
		err = run(command, args, 0, cmdCheck)
	case "index":
		err = run(command, args, 0, cmdIndex)
	case "config":
		err = run(command, args, 0, cmdConfig)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`modeltool - Vision engine .model utility

Usage:
  modeltool <command> [options] <files...>

Commands:
  info <file.model>          Show chunk and record summary
  materials <file.model>     List materials (name, sort key, transparency, diffuse)
  dump <file.model>          Print every decoded record as YAML
  check [files...]           Decode files in parallel and report failures
  index [files...]           Decode files and store them in the catalog
  config [save [path]]       Print the effective config, or save it

Options (all commands):
  -config <path>     Config file (default ./modeltool.yaml or user config dir)
  -pack <file.zip>   Read models and sidecars from a zip asset pack;
                     repeat to layer packs, later packs win
  -no-overrides      Ignore materials.xml sidecars
  -workers <n>       Parallel decoders for check and index
  -catalog <path>    Catalog database for index
  -format text|yaml  Output format for info and materials
  -debug             Enable debug logging
  -log-file <path>   Also write logs to a rotating file

With -pack, check and index default to every .model in the pack.

Examples:
  modeltool info Models/npc.model
  modeltool materials -format yaml Models/npc.model
  modeltool check -pack assets.zip
  modeltool index -catalog assets.db Models/*.model
  modeltool config -workers 4 save`)
}
