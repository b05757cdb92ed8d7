package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/json"
	"github.com/leeforge/picpipe/media/processor"
)

// jobFlags are the per-job knobs shared by the image commands.
type jobFlags struct {
	maxPixel      int
	maxByte       int
	thumb         bool
	compressLevel int
	compressTries int
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxPixel, "max-pixel", 0, "bound for the longer side in pixels")
	cmd.Flags().IntVar(&f.maxByte, "max-byte", 0, "byte budget (default pipeline.max-byte)")
	cmd.Flags().BoolVar(&f.thumb, "thumb", false, "center-crop to a max-pixel square, skip compression")
	cmd.Flags().IntVar(&f.compressLevel, "compress-level", 0, "starting JPEG level 1-10 or PNG level 0-9")
	cmd.Flags().IntVar(&f.compressTries, "compress-tries", 0, "maximum JPEG encodes")
}

func (f *jobFlags) apply(job processor.ImageJob) processor.ImageJob {
	job.MaxPixel = f.maxPixel
	job.MaxByte = f.maxByte
	job.Thumb = f.thumb
	job.CompressLevel = f.compressLevel
	job.CompressTries = f.compressTries
	return job
}

// readJob loads path into a job, sniffing its MIME type.
func readJob(path string) (processor.ImageJob, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return processor.ImageJob{}, fmt.Errorf("read %s: %w", path, err)
	}
	return processor.ImageJob{
		Buffer:   buf,
		MimeType: mimetype.Detect(buf).String(),
		Name:     filepath.Base(path),
	}, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), apperrors.Format(err))
	return err
}

func newResizeCmd(root *rootOptions) *cobra.Command {
	var (
		flags jobFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "resize <file>",
		Short: "Resize and compress an image to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root, false, nil)
			if err != nil {
				return err
			}
			defer a.close()

			job, err := readJob(args[0])
			if err != nil {
				return err
			}
			res, err := a.pipeline.ResizeAndCompress(cmd.Context(), flags.apply(job))
			if err != nil {
				return fail(cmd, err)
			}

			if out == "" {
				out = outputName(args[0], "-resized")
			}
			if err := os.WriteFile(out, res.Buffer, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"output":        out,
				"size":          res.Size,
				"maxByte":       res.MaxByte,
				"withinBudget":  res.Size <= res.MaxByte,
				"compressLevel": res.CompressLevel,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <name>-resized.<ext>)")
	return cmd
}

func newUploadCmd(root *rootOptions) *cobra.Command {
	var (
		flags  jobFlags
		bucket string
		name   string
		colors bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Store an image, resizing first when --max-pixel is set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root, true, nil)
			if err != nil {
				return err
			}
			defer a.close()

			job, err := readJob(args[0])
			if err != nil {
				return err
			}
			job = flags.apply(job)
			job.Bucket = bucket
			if name != "" {
				job.Name = name
			}

			res, err := a.pipeline.Process(cmd.Context(), job, processor.Steps{
				Colors:     colors,
				Upload:     true,
				SkipResize: flags.maxPixel <= 0,
			})
			if err != nil {
				return fail(cmd, err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "destination bucket")
	cmd.Flags().StringVarP(&name, "name", "n", "", "object key (default file name)")
	cmd.Flags().BoolVar(&colors, "colors", false, "sample colors before storing")
	_ = cmd.MarkFlagRequired("bucket")
	return cmd
}

func newColorsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "colors <file>",
		Short: "Print the dominant and average colors of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root, false, nil)
			if err != nil {
				return err
			}
			defer a.close()

			job, err := readJob(args[0])
			if err != nil {
				return err
			}
			res, err := a.pipeline.ColorPull(cmd.Context(), job)
			if err != nil {
				return fail(cmd, err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"picColors":    res.PicColors,
				"colorAverage": res.ColorAverage,
			})
		},
	}
}

// outputName turns dir/photo.jpg into dir/photo<suffix>.jpg.
func outputName(path, suffix string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + suffix + ext
}
