package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-procure/pkg/api"
	"github.com/goliatone/go-procure/pkg/besoin"
	"github.com/goliatone/go-procure/pkg/table"
)

// viewFlags are the table controls shared by list and review.
type viewFlags struct {
	requestType string
	status      string
	search      string
	sort        string
	desc        bool
	page        int
	pageSize    int
	hide        []string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.requestType, "type", "", "filter by requisition type")
	cmd.Flags().StringVar(&f.status, "status", "", "filter by status (pending, accepted, rejected)")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search object, department and requester")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort column id")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default from config)")
	cmd.Flags().StringSliceVar(&f.hide, "hide", nil, "column ids to hide")
}

// state turns the flags into a view state, applying setters in the same
// order an interactive table would.
func (f viewFlags) state(defaultPageSize int) table.ViewState {
	size := f.pageSize
	if size <= 0 {
		size = defaultPageSize
	}
	state := table.NewViewState(size)
	if f.requestType != "" {
		state.SetFilter("type", f.requestType)
	}
	if f.status != "" {
		state.SetFilter("status", f.status)
	}
	state.SetSearch(f.search)
	if f.sort != "" {
		state.SortBy(f.sort)
		if f.desc {
			state.SortBy(f.sort)
		}
	}
	for _, col := range f.hide {
		state.ToggleColumn(strings.TrimSpace(col))
	}
	state.SetPage(f.page - 1)
	return state
}

var (
	listFlags   viewFlags
	reviewFlags viewFlags
	reviewIDs   []string
	reviewAll   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List requisitions with filters, search, sorting and pagination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		view, err := presentBesoins(cmd.Context(), client, listFlags.state(cfg.Table.PageSize))
		if err != nil {
			return err
		}
		return renderView(cmd.OutOrStdout(), view)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [accepted|rejected|pending]",
	Short: "Set the status of selected requisitions",
	Long: `Applies a status to requisitions. Rows come from --ids or, with --all, from
every row matching the filters and search, across all pages. Selected rows
hidden by the current filters are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := besoin.Status(strings.ToLower(strings.TrimSpace(args[0])))
		switch status {
		case besoin.StatusAccepted, besoin.StatusRejected, besoin.StatusPending:
		default:
			return fmt.Errorf("unknown status %q", args[0])
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		view, err := presentBesoins(cmd.Context(), client, reviewFlags.state(cfg.Table.PageSize))
		if err != nil {
			return err
		}
		sel := table.NewSelection()
		if reviewAll {
			table.SelectAll(sel, view)
		}
		for _, id := range reviewIDs {
			if id = strings.TrimSpace(id); id != "" && !sel.Selected(id) {
				sel.Toggle(id)
			}
		}
		return review(cmd.Context(), cmd.OutOrStdout(), client, sel, view, status)
	},
}

func init() {
	listFlags.register(listCmd)
	reviewFlags.register(reviewCmd)
	reviewCmd.Flags().StringSliceVar(&reviewIDs, "ids", nil, "requisition ids to update")
	reviewCmd.Flags().BoolVar(&reviewAll, "all", false, "select every row matching the filters")
}

func presentBesoins(ctx context.Context, client *api.Client, state table.ViewState) (table.View[besoin.Besoin], error) {
	var rows []besoin.Besoin
	if err := client.List(ctx, besoin.Endpoint, &rows); err != nil {
		return table.View[besoin.Besoin]{}, err
	}
	t, err := besoin.NewTable()
	if err != nil {
		return table.View[besoin.Besoin]{}, err
	}
	return t.Present(rows, state), nil
}

func review(ctx context.Context, w io.Writer, client *api.Client, sel *table.Selection, view table.View[besoin.Besoin], status besoin.Status) error {
	targets := table.Targets(sel, view)
	if len(targets) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("nothing selected"))
		return err
	}
	err := table.Apply(ctx, sel, view, func(ctx context.Context, keys []string) error {
		for _, key := range keys {
			if err := client.Submit(ctx, http.MethodPatch, besoin.Endpoint+"/"+key, map[string]any{"status": string(status)}); err != nil {
				return fmt.Errorf("requisition %s: %w", key, err)
			}
			logger.Info("requisition reviewed", zap.String("id", key), zap.String("status", string(status)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("%d requisition(s) marked %s", len(targets), status)))
	return err
}
