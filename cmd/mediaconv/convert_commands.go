package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mediaconv/internal/conversion"
	"mediaconv/internal/services"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert text or video to audio",
	}
	convertCmd.AddCommand(newConvertTextCommand(ctx))
	convertCmd.AddCommand(newConvertVideoCommand(ctx))
	return convertCmd
}

type convertFlags struct {
	output string
	noSave bool
}

func (f *convertFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Directory for the produced audio (defaults to paths.download_dir)")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "Fetch the audio but do not write it to disk")
}

func newConvertTextCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	var lang string
	var textFile string

	cmd := &cobra.Command{
		Use:   "text [TEXT...]",
		Short: "Synthesize speech from text",
		Long: "Synthesize speech from text. The text is taken from the arguments, from --file, " +
			"or from stdin when neither is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextInput(cmd, args, textFile)
			if err != nil {
				return err
			}
			return runConversion(cmd, ctx, conversion.KindTextToAudio, conversion.TextInput{Text: text, Language: lang}, flags)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&lang, "language", "l", conversion.DefaultLanguage, "Speech language code (see `mediaconv languages`)")
	cmd.Flags().StringVarP(&textFile, "file", "f", "", "Read text from a file (\"-\" for stdin)")
	return cmd
}

func newConvertVideoCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "video PATH",
		Short: "Extract the audio track of a video (" + strings.Join(conversion.ContainerNames(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			in := conversion.VideoInput{Name: filepath.Base(path)}

			// Unsupported names are rejected before the file is even opened.
			if conversion.AcceptedContainer(in.Name, "") {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open video: %w", err)
				}
				defer file.Close()
				info, err := file.Stat()
				if err != nil {
					return fmt.Errorf("stat video: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", path)
				}
				in.Size = info.Size()
				in.Content = file
			} else {
				in.Content = strings.NewReader("")
			}
			return runConversion(cmd, ctx, conversion.KindVideoToAudio, in, flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func readTextInput(cmd *cobra.Command, args []string, textFile string) (string, error) {
	switch {
	case strings.TrimSpace(textFile) == "-":
		return readAll(cmd.InOrStdin())
	case strings.TrimSpace(textFile) != "":
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return readAll(cmd.InOrStdin())
	}
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func runConversion(cmd *cobra.Command, ctx *commandContext, surface conversion.Kind, in conversion.Input, flags convertFlags) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := ctx.backendClient()
	if err != nil {
		return err
	}
	orch, err := conversion.New(conversion.Options{
		Surface:  surface,
		Backend:  client,
		Registry: ctx.registry,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	label := surface.Label()
	status := newStatusPrinter(cmd.OutOrStdout(), label, "saved")
	orch.OnChange(func(job conversion.Job) {
		status.printJob(label, job)
	})

	job, err := orch.Submit(cmd.Context(), in)
	if err != nil {
		var validation *conversion.ValidationError
		if errors.As(err, &validation) {
			return fmt.Errorf("invalid %s: %s", validation.Field, validation.Reason)
		}
		return err
	}
	if job.Status == conversion.StatusFailed {
		return services.Wrap(services.ErrRequestFailed, "convert", label, job.ErrorMessage, nil)
	}
	if job.Status != conversion.StatusReady {
		return fmt.Errorf("conversion ended in state %s", job.Status)
	}
	if flags.noSave {
		return nil
	}

	dir, err := ctx.outputDir(flags.output)
	if err != nil {
		return err
	}
	path, err := job.Handle.SaveTo(dir, "")
	if err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	status.print("saved", statusOK, path)
	return nil
}
