package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surveyagg/internal/config"
	"surveyagg/internal/inspect"
	payload "surveyagg/internal/parser/json"
	"surveyagg/internal/storage"
	"surveyagg/pkg/records"
)

var (
	probeLocal bool
	probeJSON  bool
)

// probeCmd profiles a stored batch before a run is pointed at it
var probeCmd = &cobra.Command{
	Use:   "probe <key>",
	Short: "Profile a stored batch",
	Long: `Profile a stored batch: row count, per-column type counts, numeric
range, and cardinality. By default <key> names an object in the configured
store; --local reads a JSON file from the filesystem instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var t records.Table
		var err error
		if probeLocal {
			t, err = readLocalBatch(args[0])
		} else {
			t, err = readStoredBatch(cmd, args[0])
		}
		if err != nil {
			return err
		}

		p := inspect.Batch(t)
		if probeJSON {
			out, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Print(p.Render())
		return nil
	},
}

func init() {
	probeCmd.Flags().BoolVar(&probeLocal, "local", false, "read <key> as a local file path")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "emit the profile as JSON")
}

func readLocalBatch(path string) (records.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return payload.Decode(f)
}

func readStoredBatch(cmd *cobra.Command, key string) (records.Table, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := storage.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	body, err := store.Get(cmd.Context(), key)
	if err != nil {
		return nil, err
	}
	return payload.DecodeBytes(body)
}
