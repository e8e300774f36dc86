package main

import (
	"fmt"
	"text/tabwriter"

	"coursekb/internal/models"
	"coursekb/internal/storage"

	"github.com/spf13/cobra"
)

func newPendingCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List entities whose embeddings are still pending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := storage.NewDB(cmd.Context(), c.cfg.PostgresURL)
			if err != nil {
				return err
			}
			defer db.Close()

			lists := []struct {
				kind models.Kind
				list func() ([]string, error)
			}{
				{models.KindCourse, func() ([]string, error) { return storage.NewCourseRepo(db.Pool).ListPending(cmd.Context(), limit) }},
				{models.KindDocument, func() ([]string, error) { return storage.NewDocumentRepo(db.Pool).ListPending(cmd.Context(), limit) }},
				{models.KindQuestion, func() ([]string, error) { return storage.NewQuestionRepo(db.Pool).ListPending(cmd.Context(), limit) }},
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tID")
			for _, l := range lists {
				ids, err := l.list()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintf(tw, "%s\t%s\n", l.kind, id)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum ids listed per kind")
	return cmd
}
