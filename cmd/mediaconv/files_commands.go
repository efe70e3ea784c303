package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediaconv/internal/catalog"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"my-files"},
		Short:   "List and download previously converted files",
	}
	filesCmd.AddCommand(newFilesListCommand(ctx))
	filesCmd.AddCommand(newFilesDownloadCommand(ctx))
	filesCmd.AddCommand(newFilesBrowseCommand(ctx))
	return filesCmd
}

type fileJSON struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
	DownloadURL  string    `json:"download_url"`
}

type listJSON struct {
	Total   int        `json:"total"`
	Showing int        `json:"showing"`
	Files   []fileJSON `json:"files"`
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var search string
	var typeFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List converted files",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileType, err := catalog.ParseFileType(typeFlag)
			if err != nil {
				return err
			}
			cat, err := ctx.newCatalog()
			if err != nil {
				return err
			}
			cat.SetFilter(catalog.Filter{Search: search, Type: fileType})

			out := cmd.OutOrStdout()
			if err := cat.Load(cmd.Context()); err != nil {
				newStatusPrinter(out).print("my files", statusError, cat.State().LoadError)
				return fmt.Errorf("list files: %w", err)
			}
			st := cat.State()

			if asJSON {
				payload := listJSON{Total: st.Total, Showing: len(st.Visible), Files: make([]fileJSON, 0, len(st.Visible))}
				for _, f := range st.Visible {
					payload.Files = append(payload.Files, fileJSON{
						Filename:     f.Filename,
						OriginalName: f.OriginalName,
						FileType:     string(f.FileType),
						FileSize:     f.FileSizeBytes,
						CreatedAt:    f.CreatedAt,
						DownloadURL:  f.DownloadURL,
					})
				}
				return writeJSON(cmd, payload)
			}

			if len(st.Visible) == 0 {
				fmt.Fprintln(out, "No files found")
				fmt.Fprintln(out, st.EmptyHint())
				return nil
			}
			fmt.Fprintln(out, renderTable(fileColumns, fileRows(st.Visible)))
			fmt.Fprintf(out, "Showing %d of %d files\n", len(st.Visible), st.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on original name or filename")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "all", "Filter by type: all, text, video")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func fileRows(files []catalog.MediaFile) [][]string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{
			f.DisplayName(),
			fileTypeLabel(f.FileType),
			formatSize(f.FileSizeBytes),
			formatCreated(f.CreatedAt),
			f.Filename,
		})
	}
	return rows
}

func newFilesDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download FILENAME...",
		Short: "Download converted files by server filename",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.outputDir(output)
			if err != nil {
				return err
			}
			cat, err := ctx.newCatalog()
			if err != nil {
				return err
			}
			status := newStatusPrinter(cmd.OutOrStdout(), append([]string{"my files"}, args...)...)
			if err := cat.Load(cmd.Context()); err != nil {
				status.print("my files", statusError, cat.State().LoadError)
				return fmt.Errorf("list files: %w", err)
			}

			var failures []error
			for _, name := range args {
				file, ok := cat.Lookup(name)
				if !ok {
					status.print(name, statusWarn, "not in your files")
					failures = append(failures, fmt.Errorf("%s: not found", name))
					continue
				}
				path, err := cat.DownloadTo(cmd.Context(), file, dir)
				if err != nil {
					status.print(name, statusError, cat.State().DownloadError)
					failures = append(failures, fmt.Errorf("%s: %w", name, err))
					continue
				}
				status.print(name, statusOK, path)
			}
			if len(failures) > 0 {
				return fmt.Errorf("download failed for %d of %d files: %w", len(failures), len(args), errors.Join(failures...))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination directory (defaults to paths.download_dir)")
	return cmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
