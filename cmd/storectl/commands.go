package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"StoreClient/internal/api"
	"StoreClient/internal/network"
)

var errUsage = errors.New("invalid arguments, see storectl -h")

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "status":
		return a.status(ctx)
	case "init":
		return a.initialize(ctx)
	case "watch":
		return a.watch(ctx)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.api.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "profile":
		return a.profile(ctx, args)
	case "banners":
		v, err := a.api.Banners(ctx)
		return a.print(v, err)
	case "categories":
		v, err := a.api.Categories(ctx)
		return a.print(v, err)
	case "products":
		return a.products(ctx, args)
	case "product":
		return a.product(ctx, args)
	case "cart":
		return a.cartCmd(ctx, args)
	case "order":
		return a.orderCmd(ctx, args)
	case "queue":
		return a.queueCmd(ctx, args)
	case "cache":
		return a.cacheCmd(ctx, args)
	case "search":
		return a.searchCmd(ctx, args)
	default:
		usage()
		return errUsage
	}
}

func (a *app) print(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) status(ctx context.Context) error {
	st, err := a.api.ServiceStatus(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "api\t%v\t%s\n", st.APIConnected, a.cfg.API.BaseURL)
	fmt.Fprintf(tw, "signed in\t%v\n", a.session.IsAuthenticated(ctx))
	fmt.Fprintf(tw, "cache\t%d items\t%d expired\t%d bytes\n", st.Cache.TotalItems, st.Cache.ExpiredItems, st.Cache.TotalSize)
	fmt.Fprintf(tw, "queue\t%d pending\n", st.Queue.Count)
	fmt.Fprintf(tw, "cart\t%d items\n", st.CartItemCount)
	fmt.Fprintf(tw, "searches\t%d total\t%d unique\n", st.Search.TotalSearches, st.Search.UniqueQueries)
	return tw.Flush()
}

func (a *app) initialize(ctx context.Context) error {
	res, err := a.api.Initialize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "api connected: %v, expired cache entries removed: %d, old searches removed: %d\n",
		res.APIConnected, res.CacheCleanedItems, res.SearchCleanedItems)
	return nil
}

// watch polls connectivity until interrupted; the queue replays on its own
// whenever the API comes back.
func (a *app) watch(ctx context.Context) error {
	unsubscribe := a.network.Subscribe(func(st network.State) {
		fmt.Fprintf(a.out, "%s connected=%v type=%s\n", time.Now().Format(time.TimeOnly), st.IsConnected, st.Type)
	})
	defer unsubscribe()

	a.network.Start(ctx)
	<-ctx.Done()
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("STORE_EMAIL"), "account email")
	password := fs.String("password", os.Getenv("STORE_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errUsage
	}

	ar, err := a.api.Login(ctx, api.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", ar.Customer.Name, ar.Customer.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	c, ok, err := a.api.CurrentCustomer(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> id=%d\n", c.Name, c.Email, c.ID)
	if exp, ok := a.session.TokenExpiry(ctx); ok {
		fmt.Fprintf(a.out, "token expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func readOpts(fresh bool) []api.ReadOption {
	if fresh {
		return []api.ReadOption{api.Fresh()}
	}
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fresh := fs.Bool("fresh", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.print(a.api.Profile(ctx, readOpts(*fresh)...))
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	q := api.ProductQuery{}
	fs.StringVar(&q.Search, "search", "", "free-text query")
	fs.Int64Var(&q.CategoryID, "category", 0, "category id")
	sort := fs.String("sort", "", "nama, harga_asc, harga_desc or terbaru")
	fs.IntVar(&q.Page, "page", 0, "page number")
	fs.IntVar(&q.PerPage, "per-page", 0, "page size")
	fresh := fs.Bool("fresh", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q.Sort = api.SortOrder(*sort)

	page, err := a.api.SearchProducts(ctx, q, readOpts(*fresh)...)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%d\n", p.ID, p.Name, p.MinPrice, p.TotalStock)
	}
	if page.Meta != nil {
		fmt.Fprintf(tw, "\npage %d of %d, %d products\n", page.Meta.CurrentPage, page.Meta.LastPage, page.Meta.Total)
	}
	return tw.Flush()
}

func (a *app) product(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("product", flag.ContinueOnError)
	fresh := fs.Bool("fresh", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	return a.print(a.api.Product(ctx, id, readOpts(*fresh)...))
}

func (a *app) cartCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "show":
		c, err := a.cart.Cart(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ITEM\tNAME\tQTY\tPRICE\tSUBTOTAL")
		for _, it := range c.Items {
			name := it.ProductName
			if it.VariantName != "" {
				name += " / " + it.VariantName
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f\t%.0f\n", it.ID, name, it.Quantity, it.Price, it.Subtotal)
		}
		fmt.Fprintf(tw, "\t\t%d\t\t%.0f\n", c.TotalItems, c.TotalPrice)
		return tw.Flush()

	case "add":
		fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
		variant := fs.Int64("variant", 0, "variant id")
		qty := fs.Int("qty", 1, "quantity")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errUsage
		}
		pid, err := parseID(fs.Arg(0))
		if err != nil {
			return err
		}
		c, err := a.api.AddToCart(ctx, pid, *variant, *qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "cart: %d items, %.0f\n", c.TotalItems, c.TotalPrice)
		return nil

	case "set":
		if len(rest) != 2 {
			return errUsage
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return errUsage
		}
		_, err = a.cart.UpdateItemQuantity(ctx, rest[0], qty)
		return err

	case "rm":
		if len(rest) != 1 {
			return errUsage
		}
		_, err := a.cart.RemoveItem(ctx, rest[0])
		return err

	case "note":
		if len(rest) != 2 {
			return errUsage
		}
		_, err := a.cart.UpdateItemNote(ctx, rest[0], rest[1])
		return err

	case "clear":
		_, err := a.cart.ClearCart(ctx)
		return err

	case "sync":
		changes, err := a.api.SyncCartWithLatestData(ctx)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Fprintln(a.out, "cart is up to date")
		}
		for _, ch := range changes {
			switch {
			case ch.Removed:
				fmt.Fprintf(a.out, "%s removed, out of stock\n", ch.ItemID)
			default:
				fmt.Fprintf(a.out, "%s updated: %v\n", ch.ItemID, ch.Fields)
			}
		}
		return nil

	case "validate":
		issues, err := a.cart.Validate(ctx)
		if err != nil {
			return err
		}
		for _, is := range issues {
			fmt.Fprintf(a.out, "%s: %s\n", is.ItemID, is.Message)
		}
		return nil
	}
	return errUsage
}

func (a *app) orderCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "place":
		fs := flag.NewFlagSet("order place", flag.ContinueOnError)
		var co api.Checkout
		fs.Int64Var(&co.PaymentMethodID, "payment", 0, "payment method id")
		fs.StringVar(&co.ShippingAddress, "address", "", "shipping address")
		fs.Int64Var(&co.AddressID, "address-id", 0, "saved address id")
		fs.StringVar(&co.PromoCode, "promo", "", "promo code")
		fs.StringVar(&co.Note, "note", "", "order note")
		fs.IntVar(&co.PointsUsed, "points", 0, "points to redeem")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		o, err := a.api.PlaceOrder(ctx, co)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "order %s placed, total %.0f\n", o.Number, o.TotalPaid)
		return nil

	case "list":
		fs := flag.NewFlagSet("order list", flag.ContinueOnError)
		var p api.PageParams
		fs.IntVar(&p.Page, "page", 0, "page number")
		fresh := fs.Bool("fresh", false, "bypass the cache")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		page, err := a.api.Orders(ctx, p, readOpts(*fresh)...)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNUMBER\tSTATUS\tTOTAL")
		for _, o := range page.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\n", o.ID, o.Number, o.Status, o.TotalPaid)
		}
		return tw.Flush()

	case "show", "cancel":
		if len(rest) != 1 {
			return errUsage
		}
		id, err := parseID(rest[0])
		if err != nil {
			return err
		}
		if sub == "show" {
			return a.print(a.api.Order(ctx, id))
		}
		return a.print(a.api.CancelOrder(ctx, id))
	}
	return errUsage
}

func (a *app) queueCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"status"}
	}

	switch args[0] {
	case "status":
		st, err := a.queue.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d pending\n", st.Count)
		if st.Count > 0 {
			fmt.Fprintf(a.out, "oldest %s, newest %s\n", st.Oldest.Format(time.DateTime), st.Newest.Format(time.DateTime))
		}
		return nil

	case "list":
		items, err := a.queue.Items(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMETHOD\tENDPOINT\tRETRIES")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\n", it.ID, it.Method, it.Endpoint, it.RetryCount, it.MaxRetries)
		}
		return tw.Flush()

	case "flush":
		online, err := a.queue.Flush(ctx, a.network.CheckConnectivity)
		if err != nil {
			return err
		}
		if !online {
			return errors.New("API unreachable, queue kept")
		}
		st, err := a.queue.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d still pending\n", st.Count)
		return nil

	case "clear":
		return a.queue.ClearQueue(ctx)

	case "rm":
		if len(args) != 2 {
			return errUsage
		}
		ok, err := a.queue.RemoveFromQueue(ctx, args[1])
		if err == nil && !ok {
			err = fmt.Errorf("no queued request %s", args[1])
		}
		return err
	}
	return errUsage
}

func (a *app) cacheCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"info"}
	}

	switch args[0] {
	case "info":
		info, err := a.api.CacheInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d items, %d expired, %d bytes\n", info.TotalItems, info.ExpiredItems, info.TotalSize)
		return nil

	case "cleanup":
		n, err := a.api.CleanupCache(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d expired entries removed\n", n)
		return nil

	case "clear":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		n, err := a.cache.Clear(ctx, prefix)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d entries removed\n", n)
		return nil
	}
	return errUsage
}

func (a *app) searchCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"history"}
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "history":
		entries, err := a.search.Recent(ctx, 10)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(a.out, "%s\t%d results\t%dx\n", e.Query, e.ResultsCount, e.Count)
		}
		return nil

	case "popular":
		return a.print(a.search.Popular(ctx, 10))

	case "suggest":
		q := ""
		if len(rest) > 0 {
			q = rest[0]
		}
		return a.print(a.search.Suggestions(ctx, q, 5))

	case "clear":
		return a.search.Clear(ctx)

	case "export":
		raw, err := a.search.Export(ctx)
		if err != nil {
			return err
		}
		_, err = a.out.Write(append(raw, '\n'))
		return err

	case "import":
		if len(rest) != 1 {
			return errUsage
		}
		raw, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		n, err := a.search.Import(ctx, raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d searches imported\n", n)
		return nil
	}
	return errUsage
}
