// Command schema-generator writes the recordsync.yml JSON Schema for editors and CI.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/logging"
)

func main() {
	out := flag.String("out", "schema/definitions/recordsync.schema.json", "Output path")
	flag.Parse()

	log := logging.NewLogger("schema-generator")

	data, err := config.GenerateSchema()
	if err != nil {
		log.WithError(err).Fatal("Error generating schema")
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.WithError(err).Fatal("Error creating schema directory")
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		log.WithError(err).Fatal("Error writing schema file")
	}
	log.WithField("path", *out).Info("Generated config schema")
}
