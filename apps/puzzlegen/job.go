package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/config"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/grid"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/kube"
	"github.com/PhantomInTheWire/puzzle-builder/pkg/storage"
)

func newJobCmd(a *app) *cobra.Command {
	var spec kube.JobSpec
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Run puzzle generation as a Kubernetes Job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec.Pieces <= 0 {
				return fmt.Errorf("--pieces must be positive")
			}
			if err := storage.CheckName(spec.Puzzle); err != nil {
				return err
			}
			if spec.Rows > 0 || spec.Cols > 0 {
				l, err := grid.NewLayout(spec.Rows, spec.Cols)
				if err != nil {
					return err
				}
				if l.Pieces() != spec.Pieces {
					return fmt.Errorf("grid %s does not make %d pieces", l, spec.Pieces)
				}
			}
			spec.Name = kube.JobName(spec.Puzzle)
			if spec.Namespace == "" {
				spec.Namespace = a.cfg.Namespace
			}
			if spec.Image == "" {
				spec.Image = a.cfg.JobImage
			}
			spec.Endpoint = a.cfg.Minio.Endpoint
			spec.Region = a.cfg.Minio.Region
			spec.Bucket = a.cfg.Minio.Bucket
			spec.Prefix = a.cfg.Minio.Prefix
			spec.SecretName = a.cfg.MinioSecret
			spec.BackoffLimit = config.JobBackoffLimit()

			job := kube.BuildJob(spec)
			if dryRun {
				a.log.Info("dry run, not submitting", "job", job.Name, "namespace", job.Namespace, "args", job.Spec.Template.Spec.Containers[0].Args)
				return nil
			}
			clientset, err := kube.NewClientset(a.cfg.Kubeconfig)
			if err != nil {
				return err
			}
			created, err := kube.Submit(cmd.Context(), clientset, job)
			if err != nil {
				return err
			}
			a.log.Info("job created", "job", created.Name, "namespace", created.Namespace, "puzzle", spec.Puzzle)
			fmt.Fprintln(cmd.OutOrStdout(), created.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&spec.Puzzle, "name", "n", "", "puzzle name")
	f.StringVar(&spec.SourceURL, "source-url", "", "URL the job downloads the source image from")
	f.IntVarP(&spec.Pieces, "pieces", "p", 0, "number of pieces")
	f.IntVar(&spec.Rows, "rows", 0, "force the number of rows (with --cols)")
	f.IntVar(&spec.Cols, "cols", 0, "force the number of columns (with --rows)")
	f.StringVarP(&spec.Format, "format", "f", "", "tile format")
	f.StringVar(&spec.Namespace, "namespace", "", "namespace (default $KUBE_NAMESPACE)")
	f.StringVar(&spec.Image, "job-image", "", "puzzlegen container image (default $PUZZLE_JOB_IMAGE)")
	f.BoolVar(&dryRun, "dry-run", false, "build the job without submitting it")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("source-url")
	_ = cmd.MarkFlagRequired("pieces")
	cmd.MarkFlagsRequiredTogether("rows", "cols")
	return cmd
}
