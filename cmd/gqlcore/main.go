// Command gqlcore is the embedding-free CLI front end for gqlcore: open a
// database directory, then either run one statement or drop into an
// interactive shell. It drives pkg/coordinator.Coordinator exactly the way
// an embedding caller would — there is no separate client/server split.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/nornic/gqlcore/pkg/config"
	"github.com/nornic/gqlcore/pkg/coordinator"
	"github.com/nornic/gqlcore/pkg/querycache"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var dataDir, user, configFile string

	root := &cobra.Command{
		Use:   "gqlcore",
		Short: "gqlcore - embedded property-graph query engine",
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "database directory")
	root.PersistentFlags().StringVar(&user, "user", "cli", "session user name")
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")

	root.AddCommand(versionCmd())
	root.AddCommand(shellCmd(&dataDir, &user, &configFile))
	root.AddCommand(queryCmd(&dataDir, &user, &configFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("gqlcore %s (%s)\n", version, commit)
			return nil
		},
	}
}

func queryCmd(dataDir, user, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "query <statement>",
		Short: "run a single statement and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			co, sid, err := open(*dataDir, *user, *configFile)
			if err != nil {
				return err
			}
			defer co.Close()

			res, err := co.ProcessQuery(sid, args[0])
			if err != nil {
				return err
			}
			printResult(os.Stdout, res)
			return nil
		},
	}
}

func shellCmd(dataDir, user, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "interactive REPL over a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, sid, err := open(*dataDir, *user, *configFile)
			if err != nil {
				return err
			}
			defer co.Close()
			return runRepl(co, sid)
		},
	}
}

func open(dataDir, user, configFile string) (*coordinator.Coordinator, string, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	cfg = config.LoadFromEnv(cfg)
	cfg.Catalog.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	co, err := coordinator.FromPath(dataDir, coordinator.Config{
		WALDir:           cfg.Txn.WALDir,
		SyncWrites:       cfg.Txn.SyncWrites,
		PlanCacheEntries: cfg.Cache.PlanCacheMaxEntries,
		ResultL1: querycache.TierLimits{
			MaxEntries: cfg.Cache.ResultL1MaxEntries,
			MaxBytes:   cfg.Cache.ResultL1MaxBytes,
		},
		ResultL2Entries: cfg.Cache.ResultL2MaxEntries,
		SubqueryEntries:  cfg.Cache.SubqueryMaxEntries,
	})
	if err != nil {
		return nil, "", err
	}
	return co, co.CreateSimpleSession(user), nil
}

const newPrompt = "\033[32mgql>\033[0m "

func runRepl(co *coordinator.Coordinator, sid string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".gqlcore-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		res, err := co.ProcessQuery(sid, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		printResult(os.Stdout, res)
	}
}

func printResult(w io.Writer, res *coordinator.QueryResult) {
	if res.Message != "" {
		fmt.Fprintln(w, res.Message)
		return
	}
	if len(res.Columns) == 0 {
		fmt.Fprintf(w, "%d row(s) affected\n", res.RowsAffected)
		return
	}
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, col)
	}
	fmt.Fprintln(w)
	for _, row := range res.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, v.String())
		}
		fmt.Fprintln(w)
	}
}
