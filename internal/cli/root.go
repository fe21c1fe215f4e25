package cli

import (
	"context"
	"fmt"
	"os"
)

const usage = `Usage: fiskal <command> [flags]

Commands:
  add-business      register a business           (-user, -name)
  save-credentials  store portal credentials      (-user, -business, -taxcode; password and PIN are prompted)
  verify            probe the portal login        (-user, -business)
  rotate            re-encrypt stored credentials under the active key (-user, -business)
  emit              emit a receipt from a file    (-user, -business, -file, [-key])
  void              void an accepted receipt      (-user, -business, -sale, [-key], [-date])
  show              print a stored document       (-user, -business, -id)

Global flags: -c/-config <json>, -d <dsn>, -u <portal url>, -t <timeout s>, -k <key version>
`

// Run dispatches a single subcommand. args is os.Args[1:]; the subcommand
// name must come first, flags after it.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0][0] == '-' {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "add-business":
		return a.addBusiness(ctx, rest)
	case "save-credentials":
		return a.saveCredentials(ctx, rest)
	case "verify":
		return a.verifyCredentials(ctx, rest)
	case "rotate":
		return a.rotateCredentials(ctx, rest)
	case "emit":
		return a.emit(ctx, rest)
	case "void":
		return a.void(ctx, rest)
	case "show":
		return a.show(ctx, rest)
	case "help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
