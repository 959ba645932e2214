// Package cli implements the one-shot stockctl subcommands over the ApplicationService.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"stockledger/internal/app"
)

const usage = "Available: items, item, add-item, units, receive, purchase, apply-stock, projects, add-project, status, tracking, replenish"

// Run executes a one-shot CLI command. args[0] is the subcommand name; JSON payloads
// (add-item, receive, add-project) are read from the file named by args[1], or from in
// when no file is given. Results are written to out.
func Run(ctx context.Context, svc app.ApplicationService, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", usage)
	}

	switch args[0] {
	case "items", "stock":
		result, err := svc.ListItems(ctx)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		printStock(out, result)

	case "item":
		if len(args) < 2 {
			return fmt.Errorf("usage: stockctl item <item-id>")
		}
		item, err := svc.GetItem(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to load item: %w", err)
		}
		return writeJSON(out, item)

	case "add-item":
		var req app.CreateItemRequest
		if err := readPayload(args, in, &req); err != nil {
			return err
		}
		item, err := svc.CreateItem(ctx, req)
		if err != nil {
			return fmt.Errorf("create item failed: %w", err)
		}
		fmt.Fprintf(out, "Item %s created: %s\n", item.SKU, item.ID)

	case "units":
		if len(args) < 2 {
			return fmt.Errorf("usage: stockctl units <item-id>")
		}
		result, err := svc.ListUnits(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to list units: %w", err)
		}
		for _, u := range result.Units {
			fmt.Fprintf(out, "%-16s %s\n", u.UnitCode, u.PurchaseID)
		}

	case "receive":
		var req app.ReceivePurchaseRequest
		if err := readPayload(args, in, &req); err != nil {
			return err
		}
		receipt, err := svc.ReceivePurchase(ctx, req)
		if err != nil {
			return fmt.Errorf("receive failed: %w", err)
		}
		fmt.Fprintf(out, "Purchase %s recorded (%s), %d units minted\n", receipt.Purchase.ID, receipt.Purchase.Status, len(receipt.Units))
		for _, u := range receipt.Units {
			fmt.Fprintf(out, "  %s\n", u.UnitCode)
		}

	case "purchase":
		if len(args) < 2 {
			return fmt.Errorf("usage: stockctl purchase <purchase-id>")
		}
		p, err := svc.GetPurchase(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to load purchase: %w", err)
		}
		return writeJSON(out, p)

	case "apply-stock":
		if len(args) < 2 {
			return fmt.Errorf("usage: stockctl apply-stock <purchase-id>")
		}
		p, err := svc.ApplyPurchaseStock(ctx, args[1])
		if err != nil {
			return fmt.Errorf("apply stock failed: %w", err)
		}
		fmt.Fprintf(out, "Purchase %s stock applied at %s\n", p.ID, p.StockAppliedAt.Format("2006-01-02 15:04"))

	case "projects":
		result, err := svc.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		for _, p := range result.Projects {
			fmt.Fprintf(out, "%-36s %-10s %s\n", p.ID, p.Status, p.Name)
		}

	case "add-project":
		var req app.CreateProjectRequest
		if err := readPayload(args, in, &req); err != nil {
			return err
		}
		p, err := svc.CreateProject(ctx, req)
		if err != nil {
			return fmt.Errorf("create project failed: %w", err)
		}
		fmt.Fprintf(out, "Project %q created: %s\n", p.Name, p.ID)

	case "status":
		if len(args) < 3 {
			return fmt.Errorf("usage: stockctl status <project-id> <wip|complete>")
		}
		res, err := svc.SetProjectStatus(ctx, args[1], args[2])
		if err != nil {
			return fmt.Errorf("status change failed: %w", err)
		}
		if !res.Changed {
			fmt.Fprintf(out, "Project %s already %s\n", res.Project.ID, res.Project.Status)
			return nil
		}
		fmt.Fprintf(out, "Project %s is now %s\n", res.Project.ID, res.Project.Status)
		for _, rec := range res.Tracked {
			fmt.Fprintf(out, "  tracking %s %s replace by %s\n", rec.ID, rec.ItemName, rec.ReplaceBy.Format("2006-01-02"))
		}
		for _, msg := range res.TrackingErrors {
			fmt.Fprintf(out, "  tracking error: %s\n", msg)
		}

	case "tracking":
		q := app.TrackingQuery{}
		for _, a := range args[1:] {
			switch {
			case a == "--open":
				q.OpenOnly = true
			case strings.HasPrefix(a, "--status="):
				q.Status = strings.TrimPrefix(a, "--status=")
			case strings.HasPrefix(a, "--project="):
				q.ProjectID = strings.TrimPrefix(a, "--project=")
			default:
				return fmt.Errorf("unknown tracking flag %q (want --open, --status=, --project=)", a)
			}
		}
		result, err := svc.ListTracking(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to list tracking: %w", err)
		}
		printTracking(out, result)

	case "replenish":
		if len(args) < 2 {
			return fmt.Errorf("usage: stockctl replenish <record-id> [YYYY-MM-DD]")
		}
		req := app.ReplenishRequest{RecordID: args[1]}
		if len(args) > 2 {
			req.NextReplaceDate = args[2]
		}
		res, err := svc.ReplenishTracking(ctx, req)
		if err != nil {
			return fmt.Errorf("replenish failed: %w", err)
		}
		fmt.Fprintf(out, "Record %s closed, %d returned to inventory\n", res.Closed.ID, res.Closed.Quantity)
		fmt.Fprintf(out, "Record %s opened, replace by %s\n", res.Opened.ID, res.Opened.ReplaceBy.Format("2006-01-02"))

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

// readPayload decodes the JSON file named by args[1], or in when args has no file.
func readPayload(args []string, in io.Reader, v any) error {
	if len(args) > 1 {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		in = f
	}
	if err := json.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStock(out io.Writer, result *app.StockResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %-12s %-24s %7s %7s %7s %7s %10s\n", "SKU", "NAME", "INV", "RES", "WIP", "DONE", "VALUE")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, l := range result.Levels {
		flag := ""
		if l.LowStock {
			flag = " LOW"
		}
		fmt.Fprintf(out, "  %-12s %-24s %7d %7d %7d %7d %10s%s\n",
			l.SKU, truncate(l.Name, 24), l.Inventory, l.Reserved, l.WIP, l.Completed, l.Valuation.StringFixed(2), flag)
	}
	fmt.Fprintln(out, strings.Repeat("=", 78))
}

func printTracking(out io.Writer, result *app.TrackingListResult) {
	fmt.Fprintf(out, "  %-36s %-20s %-20s %-10s %s\n", "ID", "PROJECT", "ITEM", "REPLACE BY", "STATUS")
	for _, r := range result.Records {
		fmt.Fprintf(out, "  %-36s %-20s %-20s %-10s %s (%dd)\n",
			r.ID, truncate(r.ProjectName, 20), truncate(r.ItemName, 20), r.ReplaceBy.Format("2006-01-02"), r.Status, r.DaysUntilDue)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
