package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/media/queue"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// collectFiles expands directories one level deep into their image files.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		flags       jobFlags
		outDir      string
		bucket      string
		colors      bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch <file|dir>...",
		Short: "Resize and compress many images in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" && bucket == "" {
				return fmt.Errorf("one of --out-dir or --bucket is required")
			}
			a, err := newApp(cmd.Context(), root, bucket != "", nil)
			if err != nil {
				return err
			}
			defer a.close()

			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Pipeline.Workers
			}

			jobs := make([]queue.Job, 0, len(files))
			for _, f := range files {
				job, err := readJob(f)
				if err != nil {
					return err
				}
				job = flags.apply(job)
				job.Bucket = bucket
				jobs = append(jobs, queue.Job{
					ID:    f,
					Image: job,
					Steps: processor.Steps{Colors: colors, Upload: bucket != ""},
				})
			}

			tracker := queue.NewProgressTracker(len(jobs))
			for i := range jobs {
				jobs[i].Callback = func(r queue.Result) {
					tracker.Observe(r)
					a.logger.Debug("batch progress", zap.Float64("percent", tracker.GetPercentage()))
				}
			}

			start := time.Now()
			results := queue.ProcessBatch(cmd.Context(), a.pipeline, jobs, concurrency, a.logger)

			out := cmd.OutOrStdout()
			var written uint64
			for _, r := range results {
				if !r.Success() {
					fmt.Fprintf(out, "FAIL %s: %s\n", r.ID, apperrors.Format(r.Err))
					continue
				}
				if outDir != "" {
					dst := filepath.Join(outDir, filepath.Base(r.ID))
					if err := os.WriteFile(dst, r.Image.Buffer, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", dst, err)
					}
				}
				written += uint64(r.Image.Size)
				fmt.Fprintf(out, "ok   %s: %s in %s\n", r.ID, humanize.Bytes(uint64(r.Image.Size)), r.Duration.Round(time.Millisecond))
			}

			completed, failed, total := tracker.GetProgress()
			skipped := total - completed - failed
			title := cases.Title(language.English)
			fmt.Fprintf(out, "%s: %d, %s: %d, %s: %d, %s: %s, %s: %s\n",
				title.String("completed"), completed,
				title.String("failed"), failed,
				title.String("skipped"), skipped,
				title.String("output"), humanize.Bytes(written),
				title.String("took"), time.Since(start).Round(time.Millisecond),
			)
			if failed+skipped > 0 {
				return fmt.Errorf("%d of %d images failed", failed+skipped, total)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for processed images")
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "upload results to this bucket")
	cmd.Flags().BoolVar(&colors, "colors", false, "sample colors for every image")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "parallel jobs (default pipeline.workers)")
	return cmd
}
