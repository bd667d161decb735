package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

type exportNote struct {
	ID      int64  `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Text    string `json:"text" yaml:"text"`
	Updated string `json:"updated" yaml:"updated"`
}

type exportDoc struct {
	User  string       `json:"user" yaml:"user"`
	Notes []exportNote `json:"notes" yaml:"notes"`
}

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all notes as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			return a.withWorkspace(cmd.Context(), func(ws *application.Workspace) error {
				return writeExport(cmd.OutOrStdout(), format, toExportDoc(a.user, ws.Notes()))
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	return cmd
}

func toExportDoc(user string, notes []model.Note) exportDoc {
	doc := exportDoc{User: user, Notes: make([]exportNote, 0, len(notes))}
	for _, n := range notes {
		doc.Notes = append(doc.Notes, exportNote{
			ID:      n.ID,
			Title:   n.Title,
			Text:    n.Text,
			Updated: n.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return doc
}

func writeExport(w io.Writer, format string, doc exportDoc) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
