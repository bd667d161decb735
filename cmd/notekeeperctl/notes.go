package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/notekeeper/internal/application"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withWorkspace(cmd.Context(), func(ws *application.Workspace) error {
				out := cmd.OutOrStdout()
				notes := ws.Notes()
				if len(notes) == 0 {
					fmt.Fprintln(out, "no notes")
					return nil
				}
				for _, n := range notes {
					title := n.Title
					if title == "" {
						title = "(untitled)"
					}
					fmt.Fprintf(out, "%d\t%s\t%s\n", n.ID, n.UpdatedLabel(a.cfg.Location), title)
					fmt.Fprintf(out, "\t%s\n", strings.ReplaceAll(n.Text, "\n", "\n\t"))
				}
				return nil
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Append a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return a.withWorkspace(cmd.Context(), func(ws *application.Workspace) error {
				note, added, err := ws.AddNote(cmd.Context(), title, text)
				if err != nil {
					return err
				}
				if !added {
					return errors.New("note text must not be empty")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note added: %d\n", note.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return a.withWorkspace(cmd.Context(), func(ws *application.Workspace) error {
				if _, err := ws.ConfirmEdit(cmd.Context(), id, text); err != nil {
					return fmt.Errorf("edit note %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note updated: %d\n", id)
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withWorkspace(cmd.Context(), func(ws *application.Workspace) error {
				if err := ws.DeleteNote(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete note %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %d\n", id)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", s)
	}
	return id, nil
}
