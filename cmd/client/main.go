package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/skypro1111/passwdgen-service/internal/client"
	"github.com/skypro1111/passwdgen-service/internal/protocol"
)

const prompt = "Enter password type (n, a, m, u, s) and length >= 6 and <= 32 or 'q' to quit or 'h' for help: "

var cli struct {
	Host    string           `short:"H" default:"localhost" env:"PASSWDGEN_HOST" help:"Server hostname."`
	Port    int              `short:"p" default:"12345" env:"PASSWDGEN_PORT" help:"Server UDP port."`
	Timeout time.Duration    `short:"t" default:"5s" help:"How long to wait for each reply."`
	Version kong.VersionFlag `help:"Show version information."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("passwdgen-client"),
		kong.Description("Interactive client for the UDP password generator."),
		kong.UsageOnError(),
		kong.Vars{"version": "1.0.0"},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := client.NewClient(client.Config{Host: cli.Host, Port: cli.Port, Timeout: cli.Timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := runREPL(ctx, c, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		c.Close()
		os.Exit(1)
	}
}

// requester is the part of client.Client the loop needs
type requester interface {
	Request(ctx context.Context, line string) (string, error)
}

// runREPL reads requests from in until 'q' or EOF. A failed exchange ends the session.
func runREPL(ctx context.Context, c requester, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nExiting client...")
			return scanner.Err()
		}

		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == protocol.QuitCommand {
			fmt.Fprintln(out, "Exiting client...")
			return nil
		}

		reply, err := c.Request(ctx, line)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Received password from server: %s\n", reply)
	}
}
