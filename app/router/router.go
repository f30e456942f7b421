package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"crm-quote-print/app/controller"
)

// ErrUnknownCommand is returned for a command that has no route
var ErrUnknownCommand = errors.New("unknown command")

type Controllers struct {
	Invoice *controller.InvoiceController
}

// Route maps a command name to its handler
type Route struct {
	Name  string
	Usage string
	// NeedsPrinter is set when the command drives the browser
	NeedsPrinter bool
	handle       func(c *Controllers, ctx context.Context, args []string) error
}

var routes = []Route{
	{
		Name:  "render",
		Usage: "render [-quote file|-] [-quote-id id] [-company file] [-currency sym] [-title text] [-out file]",
		handle: func(c *Controllers, ctx context.Context, args []string) error {
			return c.Invoice.Render(ctx, args)
		},
	},
	{
		Name:         "print",
		Usage:        "print [-quote file|-] [-quote-id id] [-company file] [-currency sym] [-title text]",
		NeedsPrinter: true,
		handle: func(c *Controllers, ctx context.Context, args []string) error {
			return c.Invoice.Print(ctx, args)
		},
	},
}

// Lookup returns the route registered under name
func Lookup(name string) (Route, bool) {
	for _, r := range routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Dispatch runs the command named by args[0] with the remaining arguments
func Dispatch(ctx context.Context, controllers *Controllers, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}
	route, ok := Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	if controllers == nil || controllers.Invoice == nil {
		return fmt.Errorf("controllers are not initialized")
	}
	return route.handle(controllers, ctx, args[1:])
}

// Usage writes the command list to w
func Usage(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Commands:")
	for _, r := range routes {
		fmt.Fprintf(tw, "  %s\t%s\n", r.Name, r.Usage)
	}
	tw.Flush()
}
