package replcli

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/term"

	"github.com/Drox346/statforge/kernel"
)

// ServeTCP listens on addr and gives each accepted connection its own
// independent Kernel and an interactive session over the raw connection,
// the same per-connection-state shape repl/server.go uses for karl's remote
// REPL. A Kernel is not safe for concurrent use (spec §5), so sharing one
// across connections is not an option -- each connection instead gets a
// fresh, unrelated session exactly as a new local shell invocation would.
func ServeTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer listener.Close()

	fmt.Printf("StatForge remote shell listening on %s\n", addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to accept connection: %v\n", err)
			continue
		}
		go serveConnection(conn)
	}
}

func serveConnection(conn net.Conn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	fmt.Printf("new connection from %s\n", remoteAddr)

	fmt.Fprintf(conn, "StatForge remote shell\n")
	fmt.Fprintf(conn, "Type a command and press Enter. :help for the command list.\n\n")

	Start(conn, conn, kernel.New())

	fmt.Printf("connection closed from %s\n", remoteAddr)
}

// Connect dials addr and pipes the local terminal to and from the remote
// shell, restoring raw terminal mode around the session when stdin/stdout
// are both TTYs.
func Connect(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s (Ctrl+C to disconnect)\n\n", addr)

	restore, rawEnabled := enableClientRawMode(os.Stdin, os.Stdout)
	if rawEnabled {
		defer restore()
	}

	serverOut := io.Writer(os.Stdout)
	if rawEnabled {
		serverOut = newTTYLineWriter(os.Stdout)
	}

	done := make(chan error, 2)
	go func() {
		_, copyErr := io.Copy(serverOut, conn)
		done <- copyErr
	}()
	go func() {
		_, copyErr := io.Copy(conn, os.Stdin)
		done <- copyErr
	}()

	if copyErr := <-done; copyErr != nil && !errors.Is(copyErr, io.EOF) && !errors.Is(copyErr, net.ErrClosed) {
		return fmt.Errorf("session stream copy failed: %w", copyErr)
	}
	return nil
}

func enableClientRawMode(stdin *os.File, stdout *os.File) (func() error, bool) {
	if stdin == nil || stdout == nil {
		return nil, false
	}
	if !term.IsTerminal(int(stdin.Fd())) || !term.IsTerminal(int(stdout.Fd())) {
		return nil, false
	}
	state, err := term.MakeRaw(int(stdin.Fd()))
	if err != nil {
		return nil, false
	}
	return func() error {
		return term.Restore(int(stdin.Fd()), state)
	}, true
}
