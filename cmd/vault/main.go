package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/recordvault/recordvault/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	cfgFile   string
	format    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "RecordVault CLI",
	Long: `vault is the command-line interface for RecordVault.

It reads and updates the vault's record, runs the three-way integrity
check against a local payload, and restores from the backup history.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.vault")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.vault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "vault server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format: text or json")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(tamperCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(10*time.Second))
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printRecord(rec client.Record) {
	if format == "json" {
		out, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("data:      %s\nintegrity: %s\n", rec.Data, rec.Integrity)
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch the current record and its asserted digest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		rec, err := newClient().Synchronize(ctx)
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	},
}

// ── put ──────────────────────────────────────────────────────────────────────

var putCmd = &cobra.Command{
	Use:   "put <data>",
	Short: "Submit new record data with a self-computed digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		c := newClient()
		if err := c.Submit(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("record updated")
		printRecord(client.Record{Data: c.Data(), Integrity: client.Digest(c.Data())})
		return nil
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify [data]",
	Short: "Run the three-way integrity check; restores the latest backup on tamper",
	Long: `Verify fetches the record and compares three digests: the digest of the
local payload, the digest of the server's payload, and the digest the
server asserts. The record is intact only when all three agree; any other
combination is tamper and triggers restoration of the most recent backup.

With no argument, the server's own payload is used as the local copy, so
only the server-side binding is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		c := newClient()
		local := ""
		if len(args) == 1 {
			local = args[0]
		} else {
			rec, err := c.Synchronize(ctx)
			if err != nil {
				return err
			}
			local = rec.Data
		}

		verdict, err := c.VerifyData(ctx, local)
		if format == "json" {
			out, _ := json.Marshal(map[string]any{
				"verdict":  verdict.String(),
				"restored": verdict == client.VerdictTampered && err == nil,
			})
			fmt.Println(string(out))
		} else {
			fmt.Printf("verdict: %s\n", verdict)
			if verdict == client.VerdictTampered && err == nil {
				fmt.Println("restored most recent backup")
				printRecord(client.Record{Data: c.Data(), Integrity: client.Digest(c.Data())})
			}
		}
		return err
	},
}

// ── restore ──────────────────────────────────────────────────────────────────

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Pop the most recent backup and promote it to current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		rec, err := newClient().Restore(ctx)
		if err != nil {
			return err
		}
		fmt.Println("restored most recent backup")
		printRecord(rec)
		return nil
	},
}

// ── tamper ───────────────────────────────────────────────────────────────────

var tamperCmd = &cobra.Command{
	Use:   "tamper <data>",
	Short: "Fault injection: overwrite the record payload without updating its digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		rec, err := tamper(ctx, serverURL, args[0])
		if err != nil {
			return err
		}
		fmt.Println("record tampered — stored digest is now stale")
		printRecord(rec)
		return nil
	},
}

// ── history ──────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived backup snapshots, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()

		snaps, err := fetchHistory(ctx, serverURL)
		if err != nil {
			return err
		}

		if format == "json" {
			out, _ := json.MarshalIndent(snaps, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		if len(snaps) == 0 {
			fmt.Println("no backups")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDX\tARCHIVED AT\tINTEGRITY\tDATA")
		for i, s := range snaps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				i, s.ArchivedAt.Format(time.RFC3339), s.Integrity, truncate(s.Data, 48))
		}
		return w.Flush()
	},
}

// truncate shortens s to at most n runes, ending in an ellipsis, without
// splitting a multibyte rune at the cut point.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vault %s\n", version)
	},
}
