// Command storecore runs an interactive console over the retail store
// facade. All parsing and formatting stays at this boundary; the facade
// reports domain outcomes as statuses.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"storecore/internal/artifacts"
	"storecore/internal/core"
	"storecore/internal/reports"
	"storecore/pkg/domain"
)

const dateLayout = "2006-01-02"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storecore:", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	backend, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	store := core.NewStore(backend,
		core.WithLogger(logger),
		core.WithMetrics(core.NewMetrics(prometheus.DefaultRegisterer)),
	)

	ctx := context.Background()
	blobs, err := artifacts.Open(ctx)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	worker := reports.NewWorker(store, blobs, reports.WithLogger(logger))
	worker.Start()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("storecore console; type 'help' for commands")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args := strings.Fields(line)
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		if err := dispatch(ctx, store, worker, args); err != nil {
			fmt.Println("error:", err)
		}
	}
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := worker.Stop(stopCtx); err != nil {
		logger.Warn("report worker stop", zap.Error(err))
	}
	if err := store.Save(ctx); err != nil {
		return fmt.Errorf("save on exit: %w", err)
	}
	return scanner.Err()
}

func dispatch(ctx context.Context, store *core.Store, worker *reports.Worker, args []string) error {
	switch args[0] {
	case "help":
		printHelp()
		return nil
	case "add-member":
		if len(args) != 6 {
			return fmt.Errorf("usage: add-member <name> <address> <phone> <fee-paid> <fee>")
		}
		feePaid, err := strconv.ParseBool(args[4])
		if err != nil {
			return fmt.Errorf("fee-paid: %w", err)
		}
		fee, err := strconv.ParseFloat(args[5], 64)
		if err != nil {
			return fmt.Errorf("fee: %w", err)
		}
		res, err := store.AddMember(ctx, args[1], args[2], args[3], feePaid, fee)
		if err != nil {
			return err
		}
		fmt.Printf("%s id=%s\n", res.Status, res.Member.ID)
		return nil
	case "remove-member":
		if len(args) != 2 {
			return fmt.Errorf("usage: remove-member <id>")
		}
		status, err := store.RemoveMember(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case "search-member":
		if len(args) != 2 {
			return fmt.Errorf("usage: search-member <id>")
		}
		res := store.SearchMembership(args[1])
		if !res.Status.OK() {
			fmt.Println(res.Status)
			return nil
		}
		fmt.Printf("%s %s %s %s joined=%s\n", res.Member.ID, res.Member.Name, res.Member.Address, res.Member.Phone, res.Member.JoinedAt.Format(dateLayout))
		return nil
	case "add-product":
		if len(args) != 6 {
			return fmt.Errorf("usage: add-product <name> <id> <stock> <reorder-level> <price>")
		}
		stock, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("stock: %w", err)
		}
		reorder, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("reorder-level: %w", err)
		}
		price, err := strconv.ParseFloat(args[5], 64)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		res, err := store.AddProduct(ctx, args[1], args[2], stock, reorder, price)
		if err != nil {
			return err
		}
		if res.InitialOrder != nil {
			fmt.Printf("%s id=%s initial-order=%s qty=%d\n", res.Status, res.Product.ID, res.InitialOrder.ID, res.InitialOrder.Quantity)
			return nil
		}
		fmt.Printf("%s id=%s\n", res.Status, res.Product.ID)
		return nil
	case "search-product":
		if len(args) != 2 {
			return fmt.Errorf("usage: search-product <id>")
		}
		res := store.SearchCatalog(args[1])
		if !res.Status.OK() {
			fmt.Println(res.Status)
			return nil
		}
		fmt.Printf("%s %s stock=%d price=%.2f reorder=%d\n", res.Product.ID, res.Product.Name, res.Product.Stock, res.Product.Price, res.Product.ReorderLevel)
		return nil
	case "change-price":
		if len(args) != 3 {
			return fmt.Errorf("usage: change-price <product-id> <price>")
		}
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		status, err := store.ChangePrice(ctx, args[1], price)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case "create-transaction":
		if len(args) != 2 {
			return fmt.Errorf("usage: create-transaction <member-id>")
		}
		status, err := store.CreateTransaction(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case "purchase":
		if len(args) != 4 {
			return fmt.Errorf("usage: purchase <member-id> <product-id> <quantity>")
		}
		quantity, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		res, err := store.PurchaseProducts(ctx, args[1], args[2], quantity)
		if err != nil {
			return err
		}
		if !res.Status.OK() {
			fmt.Println(res.Status)
			return nil
		}
		fmt.Printf("%s line=%.2f total=%.2f\n", res.Status, res.Item.Total, res.TransactionTotal)
		if res.Order != nil {
			fmt.Printf("restock order %s qty=%d\n", res.Order.ID, res.Order.Quantity)
		}
		return nil
	case "check-transaction":
		if len(args) != 2 {
			return fmt.Errorf("usage: check-transaction <member-id>")
		}
		res, err := store.CheckTransaction(ctx, args[1])
		if err != nil {
			return err
		}
		if res.Status == core.StatusCompleted {
			fmt.Printf("total=%.2f\n", res.Total)
			return nil
		}
		fmt.Println(res.Status)
		return nil
	case "delete-transaction":
		if len(args) != 2 {
			return fmt.Errorf("usage: delete-transaction <member-id>")
		}
		status, err := store.DeleteTransaction(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case "get-change":
		if len(args) != 3 {
			return fmt.Errorf("usage: get-change <member-id> <payment>")
		}
		payment, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("payment: %w", err)
		}
		res, err := store.GetChange(ctx, args[1], payment)
		if err != nil {
			return err
		}
		if res.Status == core.StatusTransactionComplete {
			fmt.Printf("%s change=%.2f\n", res.Status, res.Change)
			return nil
		}
		fmt.Println(res.Status)
		return nil
	case "process-shipment":
		if len(args) != 2 {
			return fmt.Errorf("usage: process-shipment <order-id>")
		}
		status, err := store.ProcessShipments(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	case "members":
		printListings(store.GetMembers())
		return nil
	case "products":
		printListings(store.GetProducts())
		return nil
	case "orders":
		printListings(store.GetOrders())
		return nil
	case "transactions":
		if len(args) != 4 {
			return fmt.Errorf("usage: transactions <member-id> <start YYYY-MM-DD> <end YYYY-MM-DD>")
		}
		start, err := time.Parse(dateLayout, args[2])
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		end, err := time.Parse(dateLayout, args[3])
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		it, status := store.GetTransactions(args[1], start, end)
		if !status.OK() {
			fmt.Println(status)
			return nil
		}
		printListings(it)
		return nil
	case "report":
		if len(args) != 2 && len(args) != 5 {
			return fmt.Errorf("usage: report <members|products|orders> | report member_transactions <member-id> <start> <end>")
		}
		req := reports.Request{Kind: reports.Kind(args[1]), RequestedBy: "console"}
		if len(args) == 5 {
			start, err := time.Parse(dateLayout, args[3])
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			end, err := time.Parse(dateLayout, args[4])
			if err != nil {
				return fmt.Errorf("end: %w", err)
			}
			req.MemberID, req.Start, req.End = args[2], start, end
		}
		record, err := worker.Enqueue(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("report %s queued\n", record.ID)
		final, done := awaitReport(worker, record.ID, 10*time.Second)
		if !done {
			fmt.Printf("still running; check with report-status %s\n", record.ID)
			return nil
		}
		printReport(final)
		return nil
	case "report-status":
		if len(args) != 2 {
			return fmt.Errorf("usage: report-status <report-id>")
		}
		record, ok := worker.Get(args[1])
		if !ok {
			return fmt.Errorf("no report %q", args[1])
		}
		printReport(record)
		return nil
	case "save":
		if err := store.Save(ctx); err != nil {
			return err
		}
		fmt.Println("saved")
		return nil
	default:
		return fmt.Errorf("unknown command %q; type 'help'", args[0])
	}
}

func awaitReport(worker *reports.Worker, id string, timeout time.Duration) (reports.Record, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		record, ok := worker.Get(id)
		if !ok {
			return reports.Record{}, false
		}
		if record.Status == reports.StatusSucceeded || record.Status == reports.StatusFailed {
			return record, true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return reports.Record{}, false
}

func printReport(record reports.Record) {
	fmt.Printf("report %s %s: %s\n", record.ID, record.Kind, record.Status)
	if record.Error != "" {
		fmt.Println("  error:", record.Error)
	}
	for _, a := range record.Artifacts {
		fmt.Printf("  %s rows=%d bytes=%d %s\n", a.Key, a.Rows, a.SizeBytes, a.Location)
	}
}

func printListings(it *domain.ListingIterator) {
	if it.Remaining() == 0 {
		fmt.Println("(empty)")
		return
	}
	for {
		listing, err := it.Next()
		if err != nil {
			return
		}
		switch listing.Kind {
		case domain.EntityMember:
			fmt.Printf("%s %s %s %s joined=%s\n", listing.ID, listing.Name, listing.Address, listing.Phone, listing.JoinedAt.Format(dateLayout))
		case domain.EntityProduct:
			fmt.Printf("%s %s stock=%d price=%.2f reorder=%d\n", listing.ID, listing.Name, listing.Stock, listing.Price, listing.ReorderLevel)
		case domain.EntityOrder:
			fmt.Printf("%s %s x%d (%s) created=%s\n", listing.ID, listing.ProductName, listing.Quantity, listing.Reason, listing.CreatedAt.Format(dateLayout))
		case domain.EntityTransaction:
			fmt.Printf("%s items=%d total=%.2f payment=%.2f completed=%t\n", listing.CreatedAt.Format(dateLayout), len(listing.Items), listing.Total, listing.Payment, listing.Completed)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  add-member <name> <address> <phone> <fee-paid> <fee>
  remove-member <id>
  search-member <id>
  add-product <name> <id> <stock> <reorder-level> <price>
  search-product <id>
  change-price <product-id> <price>
  create-transaction <member-id>
  purchase <member-id> <product-id> <quantity>
  check-transaction <member-id>
  delete-transaction <member-id>
  get-change <member-id> <payment>
  process-shipment <order-id>
  members | products | orders
  transactions <member-id> <start> <end>
  report <members|products|orders>
  report member_transactions <member-id> <start> <end>
  report-status <report-id>
  save
  quit
`)
}
