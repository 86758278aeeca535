package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aaron-1990/line-routing/pkg/backup"
	"github.com/Aaron-1990/line-routing/pkg/routing"
)

func newBackupCmd(opts *rootOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot every routing into a local file",
		Long: `Fetch every model's routing and write a compressed snapshot file
with a CRC-32 integrity footer. Restore with "routing-admin restore".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			client := opts.client()

			var models modelsResponse
			if err := client.do(http.MethodGet, "/routings", nil, &models); err != nil {
				return err
			}

			snap := &backup.Snapshot{
				Version:   backup.SnapshotVersion,
				CreatedAt: time.Now().UTC(),
				Routings:  make([]routing.ModelRouting, 0, len(models.Models)),
			}
			for _, modelID := range models.Models {
				var mr routing.ModelRouting
				if err := client.do(http.MethodGet, "/routings/"+modelID, nil, &mr); err != nil {
					return fmt.Errorf("fetching %s: %w", modelID, err)
				}
				snap.Routings = append(snap.Routings, mr)
			}

			data, err := backup.Encode(snap)
			if err != nil {
				return err
			}

			name := output
			if name == "" {
				name = fmt.Sprintf("routing-%s.snap", time.Now().UTC().Format("20060102-150405"))
			}
			if err := os.WriteFile(name, data, 0644); err != nil {
				return err
			}

			logger.Infof("Snapshot written: %s (%d models, %d bytes)", name, len(snap.Routings), len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file (default routing-<timestamp>.snap)")
	return cmd
}

func newRestoreCmd(opts *rootOpts) *cobra.Command {
	var abortOnInvalid bool
	cmd := &cobra.Command{
		Use:   "restore <snapshot-file>",
		Short: "Replay a snapshot through the server",
		Long: `Replay every routing in a snapshot file through the server's normal
replace path, so restored routings are validated exactly like any
other write. Entries the server rejects are reported and skipped, or
abort the restore with --abort-on-invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := backup.Decode(data)
			if err != nil {
				return fmt.Errorf("reading snapshot %s: %w", args[0], err)
			}

			logger.Infof("Snapshot %s: %d models, created %s",
				args[0], len(snap.Routings), snap.CreatedAt.Format(time.RFC3339))

			client := opts.client()
			restored, skipped := 0, 0
			for _, mr := range snap.Routings {
				var vr routing.ValidationResult
				err := client.do(http.MethodPut, "/routings/"+mr.ModelID, stepsPayload{Steps: mr.Steps}, &vr)
				if err != nil {
					if rej, ok := rejectedValidation(err); ok {
						if abortOnInvalid {
							printValidation(mr.ModelID, rej)
							return fmt.Errorf("snapshot entry %s no longer validates", mr.ModelID)
						}
						logger.Warnf("Skipping %s: %s", mr.ModelID, validationSummary(rej))
						skipped++
						continue
					}
					return fmt.Errorf("restoring %s: %w", mr.ModelID, err)
				}
				restored++
			}

			logger.Infof("Restore complete: %d restored, %d skipped", restored, skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&abortOnInvalid, "abort-on-invalid", false, "stop at the first entry the server rejects")
	return cmd
}
