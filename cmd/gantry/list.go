package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantrylabs/gantry/internal/storage"
)

var (
	listStatus     []string
	listPriority   []string
	listType       []string
	listAssignee   string
	listTags       []string
	listRoots      bool
	listParent     string
	listSort       string
	listOrder      string
	listPage       int
	listPageSize   int
	listJSONOutput bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks with filtering, sorting, and pagination.

Examples:
  gantry list
  gantry list --status pending,blocked --priority high,urgent
  gantry list --roots --sort priority --order desc
  gantry list --parent 1b9bdb7a
  gantry list --assignee dana --tags backend --page 2`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceVarP(&listStatus, "status", "s", nil, "Filter by status (comma-separated)")
	listCmd.Flags().StringSliceVarP(&listPriority, "priority", "p", nil, "Filter by priority (comma-separated)")
	listCmd.Flags().StringSliceVarP(&listType, "type", "t", nil, "Filter by type (comma-separated)")
	listCmd.Flags().StringVarP(&listAssignee, "assignee", "a", "", "Filter by assignee")
	listCmd.Flags().StringSliceVar(&listTags, "tags", nil, "Keep tasks carrying every listed tag")
	listCmd.Flags().BoolVar(&listRoots, "roots", false, "Only tasks without a parent")
	listCmd.Flags().StringVar(&listParent, "parent", "", "Only direct children of this task")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort field (created_at, updated_at, due_date, title, status, priority, complexity, progress, level)")
	listCmd.Flags().StringVar(&listOrder, "order", "", "Sort direction (asc, desc)")
	listCmd.Flags().IntVar(&listPage, "page", 0, "Page number, 1-based")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Tasks per page")
	listCmd.Flags().BoolVar(&listJSONOutput, "json", false, "Emit JSON instead of a table")
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := openApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	q, err := buildListQuery()
	if err != nil {
		return err
	}

	page := app.manager.List(q)
	if listJSONOutput {
		return printJSON(page)
	}

	if page.Total == 0 {
		fmt.Println("No tasks match. Create one with: gantry add \"My task\"")
		return nil
	}
	for _, t := range page.Tasks {
		printTaskRow(t)
	}
	if page.Total > len(page.Tasks) {
		fmt.Printf("\nPage %d of %d tasks", page.Page, page.Total)
		if page.HasMore {
			fmt.Printf(" (next: --page %d)", page.Page+1)
		}
		fmt.Println()
	}
	return nil
}

// buildListQuery turns the list flags into a storage query.
func buildListQuery() (storage.Query, error) {
	q := storage.Query{
		Assignee:  listAssignee,
		Tags:      listTags,
		RootsOnly: listRoots,
		ParentID:  listParent,
		SortBy:    storage.SortField(listSort),
		SortOrder: storage.SortOrder(listOrder),
		Page:      listPage,
		PageSize:  listPageSize,
	}
	for _, s := range listStatus {
		st, err := parseStatus(s)
		if err != nil {
			return q, err
		}
		q.Status = append(q.Status, st)
	}
	for _, s := range listPriority {
		p, err := parsePriority(s)
		if err != nil {
			return q, err
		}
		q.Priority = append(q.Priority, p)
	}
	for _, s := range listType {
		tt, err := parseTaskType(s)
		if err != nil {
			return q, err
		}
		q.Type = append(q.Type, tt)
	}
	return q, nil
}
