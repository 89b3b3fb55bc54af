// This program performs administrative tasks against the node's stored chain.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ebsnet/blockchain/app/tooling/admin/commands"
	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/blockchain/storage/disk"
	"github.com/ebsnet/blockchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const (
	dbPath      = "zblock/blocks.db"
	genesisPath = "zblock/genesis.json"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return errors.New("usage: admin status|blocks|trans [publickey]")
	}

	log.Infow("startup", "version", build, "command", os.Args[1])

	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return err
	}

	strg, err := disk.New(dbPath)
	if err != nil {
		return err
	}

	// Every stored block is replayed through validation, so a chain that
	// loads here is one the node would accept.
	st, err := state.New(state.Config{
		Genesis: gen,
		Storage: strg,
		Schema:  billing.Schema{},
		EvHandler: func(v string, args ...any) {
			log.Debugw(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		strg.Close()
		return err
	}
	defer strg.Close()

	return processCommands(os.Args, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, st *state.State) error {
	switch args[1] {
	case "status":
		if err := commands.Status(st); err != nil {
			return fmt.Errorf("getting status: %w", err)
		}
	case "blocks":
		if err := commands.Blocks(st); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, st); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
