package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lemonade/internal/apperr"
	"lemonade/internal/backend"
	"lemonade/internal/cart"
	"lemonade/internal/checkout"
	"lemonade/internal/models"

	"github.com/shopspring/decimal"
)

// Shell is a line-oriented adapter over an App. It only parses input and
// prints results; every decision lives in the stores and the orchestrator.
type Shell struct {
	in  *bufio.Scanner
	out io.Writer
	app *App
}

func NewShell(in io.Reader, out io.Writer) *Shell {
	return &Shell{in: bufio.NewScanner(in), out: out}
}

// ConfirmSaveAddress asks whether addr should be saved for next time.
func (s *Shell) ConfirmSaveAddress(_ context.Context, addr models.Address) bool {
	return s.ask(fmt.Sprintf("Save %q as your delivery address? [y/N] ", addr.FullAddress), false)
}

// Run reads commands until EOF or "quit".
func (s *Shell) Run(ctx context.Context, a *App) error {
	s.app = a
	s.printf("🍋 Lemonade storefront. Type \"help\" for commands.\n")
	for {
		s.printf("> ")
		if !s.in.Scan() {
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.Exec(ctx, line); err != nil {
			s.printf("%s\n", apperr.UserMessage(err))
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		s.help()
	case "products":
		return s.products(ctx)
	case "add":
		return s.add(ctx, args)
	case "remove":
		id, err := productArg(args)
		if err != nil {
			return err
		}
		return s.afterCart(s.app.Cart.RemoveItem(ctx, id))
	case "inc", "dec":
		id, err := productArg(args)
		if err != nil {
			return err
		}
		delta := cart.Decrement
		if cmd == "inc" {
			delta = cart.Increment
		}
		return s.afterCart(s.app.Cart.SetQuantity(ctx, id, delta))
	case "cart":
		s.showCart()
	case "clear":
		return s.afterCart(s.app.Cart.Clear(ctx))
	case "checkout":
		return s.checkout(ctx, args)
	case "confirm":
		return s.confirm(ctx)
	case "cancel":
		if err := s.app.Checkout.Cancel(); err != nil {
			return err
		}
		s.printf("Payment cancelled\n")
	case "login":
		return s.login(ctx, args)
	case "signup":
		return s.signup(ctx, args)
	case "logout":
		if err := s.app.Accounts.SignOut(ctx); err != nil {
			return err
		}
		s.printf("👋 Signed out\n")
	case "whoami":
		s.whoami()
	case "orders":
		return s.orders(ctx)
	case "notifications":
		return s.notifications(ctx)
	case "theme":
		return s.theme(ctx, args)
	case "admin":
		return s.admin(ctx, args)
	default:
		return apperr.Validation("", fmt.Sprintf("Unknown command %q. Type \"help\".", cmd))
	}
	return nil
}

func (s *Shell) help() {
	s.printf(`Commands:
  products                          list products
  add <id> [qty]                    add to cart
  remove <id> | inc <id> | dec <id> change cart lines
  cart | clear                      show or empty the cart
  checkout <cash|mpesa> [phone]     place an order
  confirm | cancel                  answer a pending M-Pesa confirmation
  login <email|phone> <password>    sign in
  signup <email> <phone> <password> <name...>
  logout | whoami
  orders | notifications            order history and notifications
  theme <light|dark>
  admin orders | admin stats | admin status <orderId> <status>
  quit
`)
}

func (s *Shell) products(ctx context.Context) error {
	if err := s.app.Catalog.Refresh(ctx); err != nil {
		return err
	}
	for _, p := range s.app.Catalog.Products() {
		s.printf("%4d  %-24s %12s  %s\n", p.ID, p.Name, money(p.Price), models.StockStatus(p.Stock))
	}
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	id, err := productArg(args)
	if err != nil {
		return err
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return apperr.Validation("quantity", "Quantity must be a number")
		}
	}
	p, err := s.app.AddToCart(ctx, id, qty)
	if err != nil {
		return err
	}
	s.printf("✅ %s added to cart! (%d items)\n", p.Name, s.app.Cart.ItemCount())
	return nil
}

func (s *Shell) afterCart(err error) error {
	if err != nil {
		return err
	}
	s.showCart()
	return nil
}

func (s *Shell) showCart() {
	lines := s.app.Cart.Lines()
	if len(lines) == 0 {
		s.printf("Your cart is empty!\n")
		return
	}
	for _, l := range lines {
		s.printf("%4d  %-24s %3d × %-10s %12s\n", l.ProductID, l.Name, l.Quantity, money(l.UnitPrice), money(l.Subtotal()))
	}
	s.printf("Items: %d  Total: %s\n", s.app.Cart.ItemCount(), money(s.app.Cart.Total()))
}

func (s *Shell) checkout(ctx context.Context, args []string) error {
	req := checkout.Request{}
	if len(args) > 0 {
		req.PaymentMethod = models.PaymentMethod(strings.ToLower(args[0]))
	}
	if len(args) > 1 {
		req.Phone = strings.Join(args[1:], "")
	}

	useSaved := false
	if user, ok := s.app.Accounts.Current(); ok && user.Address != nil && !user.Address.IsZero() {
		useSaved = s.ask(fmt.Sprintf("Deliver to %s? [Y/n] ", user.Address.Display()), true)
	}
	if !useSaved {
		req.Street = s.prompt("Street: ")
		req.Landmark = s.prompt("Landmark (optional): ")
		req.City = s.prompt("City: ")
		req.Notes = s.prompt("Delivery notes (optional): ")
	}
	req.TermsAccepted = s.ask("Accept the terms and conditions? [y/N] ", false)

	out, err := s.app.Checkout.Start(ctx, req)
	if err != nil {
		return err
	}
	if out.Result != nil {
		s.printResult(out.Result)
		return nil
	}

	conf := out.Confirmation
	if !s.ask(fmt.Sprintf("📱 Pay %s via M-Pesa from %s? [y/N] ", money(conf.Amount), conf.Phone), false) {
		if err := s.app.Checkout.Cancel(); err != nil {
			return err
		}
		s.printf("Payment cancelled\n")
		return nil
	}
	return s.confirm(ctx)
}

func (s *Shell) confirm(ctx context.Context) error {
	res, err := s.app.Checkout.Confirm(ctx)
	if err != nil {
		return err
	}
	s.printResult(res)
	return nil
}

func (s *Shell) printResult(res *checkout.Result) {
	s.printf("✅ %s\n   %s\n   %s\n", res.Notification.Title, res.Notification.Message, res.Notification.DeliveryInfo)
	if res.AddressSaved {
		s.printf("🏠 Address saved\n")
	}
	if res.FollowUpErr != nil {
		s.printf("⚠️ %v\n", res.FollowUpErr)
	}
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return apperr.Validation("", "usage: login <email|phone> <password>")
	}
	creds := backend.Credentials{Password: args[1]}
	if strings.Contains(args[0], "@") {
		creds.Email = args[0]
	} else {
		creds.Phone = args[0]
	}
	p, err := s.app.Login(ctx, creds)
	if err != nil {
		return err
	}
	s.printf("👤 Welcome back, %s!\n", p.Name)
	return nil
}

func (s *Shell) signup(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return apperr.Validation("", "usage: signup <email> <phone> <password> <name...>")
	}
	p, err := s.app.Signup(ctx, backend.Credentials{
		Email:    args[0],
		Phone:    args[1],
		Password: args[2],
		Name:     strings.Join(args[3:], " "),
	})
	if err != nil {
		return err
	}
	s.printf("🎉 Welcome, %s!\n", p.Name)
	return nil
}

func (s *Shell) whoami() {
	p, ok := s.app.Accounts.Current()
	if !ok {
		s.printf("Guest\n")
		return
	}
	s.printf("%s (#%d) orders: %d, spent: %s\n", p.Name, p.ID, p.OrderCount, money(p.TotalSpent))
	if p.Address != nil {
		s.printf("Address: %s\n", p.Address.Display())
	}
}

func (s *Shell) orders(ctx context.Context) error {
	orders, err := s.app.History(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		s.printf("No orders yet\n")
	}
	for _, o := range orders {
		s.printf("#%-14s %-12s %-8s %12s  %s\n", o.Reference(), o.Status, o.PaymentMethod, money(o.Total), o.Date.Format("2006-01-02"))
	}
	return nil
}

func (s *Shell) notifications(ctx context.Context) error {
	list, err := s.app.UserNotifications(ctx)
	if err != nil {
		return err
	}
	for _, n := range list {
		s.printf("%s  %s\n   %s\n", n.Timestamp.Local().Format("Jan 2 15:04"), n.Title, n.Message)
	}
	return nil
}

func (s *Shell) theme(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.printf("%s\n", s.app.Accounts.Theme())
		return nil
	}
	return s.app.Accounts.SetTheme(ctx, args[0])
}

func (s *Shell) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperr.Validation("", "usage: admin orders | admin stats | admin status <orderId> <status>")
	}
	switch args[0] {
	case "orders":
		orders, err := s.app.Backend.AdminOrders(ctx)
		if err != nil {
			return err
		}
		for _, o := range orders {
			s.printf("%-38s #%-14s %-20s %-12s %12s\n", o.ID, o.Reference(), o.CustomerName, o.Status, money(o.Total))
		}
	case "stats":
		st, err := s.app.Backend.Stats(ctx)
		if err != nil {
			return err
		}
		s.printf("Orders: %d (pending: %d)  Revenue: %s  Customers: %d  Products: %d\n",
			st.TotalOrders, st.PendingBadge, money(st.Revenue), st.TotalCustomers, st.TotalProducts)
		for _, status := range models.OrderStatuses {
			s.printf("  %-12s %d\n", status, st.StatusCounts[status])
		}
	case "status":
		if len(args) != 3 {
			return apperr.Validation("", "usage: admin status <orderId> <status>")
		}
		status := models.OrderStatus(args[2])
		if !status.Valid() {
			return apperr.Validation("status", "Unknown order status "+args[2])
		}
		if err := s.app.Backend.UpdateOrderStatus(ctx, args[1], status); err != nil {
			return err
		}
		s.printf("✅ Order %s is now %s\n", args[1], status)
	default:
		return errors.New("unknown admin command " + args[0])
	}
	return nil
}

func (s *Shell) prompt(label string) string {
	s.printf("%s", label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *Shell) ask(question string, def bool) bool {
	switch strings.ToLower(s.prompt(question)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func productArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, apperr.Validation("id", "Product id required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, apperr.Validation("id", "Product id must be a number")
	}
	return id, nil
}

func money(d decimal.Decimal) string {
	return "KES " + d.StringFixed(2)
}
