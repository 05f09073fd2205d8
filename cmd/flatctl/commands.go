package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/colocapp/coloc-server/internal/auth"
	"github.com/colocapp/coloc-server/internal/domain"
	"github.com/colocapp/coloc-server/internal/store"
	"github.com/colocapp/coloc-server/internal/store/sqlite"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flatctl",
		Short:         "Operator tool for the coloc server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("data-path", os.Getenv("DATA_PATH"), "Server data directory (defaults to $DATA_PATH)")

	root.AddCommand(tokenCmd(), inspectCmd())
	return root
}

func dataPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("data-path")
	if path == "" {
		return "", fmt.Errorf("data path is required: pass --data-path or set DATA_PATH")
	}
	return path, nil
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an identity token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dataPath(cmd)
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")

			key, err := auth.LoadKey(path)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(key, ttl)
			if err != nil {
				return err
			}

			token, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print flats with their members, join requests and events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dataPath(cmd)
			if err != nil {
				return err
			}
			flatID, _ := cmd.Flags().GetString("flat")

			dbPath := filepath.Join(path, "coloc.db")
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("open database: %w", err)
			}

			st, err := sqlite.Open(dbPath, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			return inspect(cmd.Context(), st, flatID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("flat", "", "Only show this flat")

	return cmd
}

func inspect(ctx context.Context, st *sqlite.Store, onlyFlat string, w io.Writer) error {
	ids := []string{onlyFlat}
	if onlyFlat == "" {
		var err error
		if ids, err = allFlatIDs(ctx, st); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "=== Database Inspection ===")
	fmt.Fprintf(w, "flats: %d\n", len(ids))

	for _, id := range ids {
		flat, err := st.GetFlat(ctx, id)
		if err != nil {
			return err
		}
		reqs, err := st.ListJoinRequests(ctx, id, store.JoinRequestFilter{})
		if err != nil {
			return err
		}
		events, err := st.ListEvents(ctx, id)
		if err != nil {
			return err
		}

		pending := 0
		for _, r := range reqs {
			if r.Status == domain.RequestPending {
				pending++
			}
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s  %q  creator=%s\n", flat.ID, flat.Name, flat.CreatorID)
		fmt.Fprintf(w, "  members (%d): %v\n", len(flat.Members), flat.Members)
		fmt.Fprintf(w, "  join requests: %d (%d pending)\n", len(reqs), pending)
		for _, r := range reqs {
			fmt.Fprintf(w, "    %-28s %-10s requester=%s\n", r.ID, r.Status, r.RequesterID)
		}
		fmt.Fprintf(w, "  events: %d\n", len(events))
	}

	return nil
}

func allFlatIDs(ctx context.Context, st *sqlite.Store) ([]string, error) {
	rows, err := st.DB().QueryContext(ctx, `SELECT id FROM flats ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan flat id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
